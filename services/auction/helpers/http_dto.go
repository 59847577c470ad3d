package helpers

import (
	"time"

	"auction-engine/internal/bidding"
	model "auction-engine/internal/models"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id" binding:"required"`
	BidderID  string  `json:"bidder_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type AuctionStateResponse struct {
	AuctionID        string       `json:"auction_id"`
	VehicleMake      string       `json:"vehicle_make"`
	VehicleModel     string       `json:"vehicle_model"`
	VehicleYear      int          `json:"vehicle_year"`
	Status           string       `json:"status"`
	CurrentPrice     float64      `json:"current_price"`
	HighestBid       *BidResponse `json:"highest_bid,omitempty"`
	MinimumNextBid   float64      `json:"minimum_next_bid"`
	BidCount         int          `json:"bid_count"`
	ScheduledEndAt   string       `json:"scheduled_end_at"`
	ServerTime       string       `json:"server_time"`
	RemainingSeconds int64        `json:"remaining_seconds"`
}

// ToBidResponse maps a ledger bid onto the wire format.
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount.InexactFloat64(),
		Status:    string(bid.Status),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToAuctionStateResponse maps the coordinator's read-model onto the wire format.
func ToAuctionStateResponse(state bidding.State) AuctionStateResponse {
	resp := AuctionStateResponse{
		AuctionID:        state.Auction.AuctionID,
		VehicleMake:      state.Auction.VehicleMake,
		VehicleModel:     state.Auction.VehicleModel,
		VehicleYear:      state.Auction.VehicleYear,
		Status:           string(state.Auction.Status),
		CurrentPrice:     state.CurrentPrice.InexactFloat64(),
		MinimumNextBid:   state.MinimumNextBid.InexactFloat64(),
		BidCount:         state.BidCount,
		ScheduledEndAt:   state.Auction.ScheduledEndAt.UTC().Format(time.RFC3339),
		ServerTime:       state.ServerTime.UTC().Format(time.RFC3339),
		RemainingSeconds: state.RemainingSeconds,
	}
	if state.HighestBid != nil {
		bid := ToBidResponse(*state.HighestBid)
		resp.HighestBid = &bid
	}
	return resp
}
