package server

import (
	"auction-engine/internal/bidding"
	"auction-engine/internal/presence"
	"auction-engine/internal/realtime"
	handler "auction-engine/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc *bidding.Service, bc *realtime.Broadcaster, tracker *presence.Tracker) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(svc)

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionStateHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidHistoryHandler)
		auctions.GET("/:auction_id/stream", StreamHandler(svc, bc, tracker))
	}

	return router
}
