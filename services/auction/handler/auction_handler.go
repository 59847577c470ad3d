package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/bidding"
	model "auction-engine/internal/models"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_auction_service.go -package=handler

type AuctionServiceInterface interface {
	PlaceBid(auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error)
	GetAuctionState(auctionID string) (bidding.State, error)
	ListAuctionStates() ([]bidding.State, error)
	GetBidHistory(auctionID string, limit int) ([]model.Bid, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(req.AuctionID, req.BidderID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.rejectBid(c, req, err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  req.BidderID,
		"amount":     req.Amount,
		"bid_status": string(bid.Status),
	})
}

// rejectBid sends a typed rejection. BidTooLow rejections carry the current
// minimum acceptable amount so the bidder can retry without re-querying.
func (h *AuctionHandler) rejectBid(c *gin.Context, req helpers.PlaceBidRequest, err error) {
	status, message := helpers.MapErrorToHTTP(err)

	if errors.Is(err, auctionerrors.ErrBidTooLow) {
		detail := map[string]any{}
		if state, stateErr := h.service.GetAuctionState(req.AuctionID); stateErr == nil {
			detail["minimum_next_bid"] = state.MinimumNextBid.InexactFloat64()
		}
		utils.JSONRejection(c, status, fmt.Errorf("%s: %w", message, err), message, detail)
	} else {
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	}

	utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
		"handler":    "PlaceBidHandler",
		"auction_id": req.AuctionID,
		"bidder_id":  req.BidderID,
		"amount":     req.Amount,
		"error":      err.Error(),
	})
}

// GetAuctionStateHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionStateHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.service.GetAuctionState(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionStateHandler: error retrieving state", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionStateResponse(state), "auction state retrieved successfully")
	helpers.LogSuccess("GetAuctionStateHandler", "auction state retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"status":     string(state.Auction.Status),
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	states, err := h.service.ListAuctionStates()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	resp := make([]helpers.AuctionStateResponse, 0, len(states))
	for _, state := range states {
		resp = append(resp, helpers.ToAuctionStateResponse(state))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"count": len(resp),
	})
}

// GetBidHistoryHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidHistoryHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.JSONError(c, http.StatusBadRequest, auctionerrors.ErrInvalidBid, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	bids, err := h.service.GetBidHistory(auctionID, limit)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidHistoryHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.ToBidResponse(bid))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bid history retrieved successfully")
	helpers.LogSuccess("GetBidHistoryHandler", "bid history retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}
