package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. Transitions are driven
// by wall-clock time and terminal bidding events, never set by a client.
type AuctionStatus string

const (
	AuctionUpcoming AuctionStatus = "upcoming"
	AuctionOngoing  AuctionStatus = "ongoing"
	AuctionEnded    AuctionStatus = "ended"
	AuctionSold     AuctionStatus = "sold"
)

// Terminal reports whether the status admits no further transitions.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionSold
}

// BidStatus is the lifecycle state of a single bid. The ledger exclusively
// owns bid status.
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidActive    BidStatus = "active"
	BidOutbid    BidStatus = "outbid"
	BidWon       BidStatus = "won"
	BidCancelled BidStatus = "cancelled"
)

// Auction represents the timed competitive sale of one vehicle listing.
// Vehicle catalog fields are consumed read-only for display.
type Auction struct {
	AuctionID        string          `json:"auction_id"`
	VehicleMake      string          `json:"vehicle_make"`
	VehicleModel     string          `json:"vehicle_model"`
	VehicleYear      int             `json:"vehicle_year"`
	StartPrice       decimal.Decimal `json:"start_price"`
	BuyNowPrice      decimal.Decimal `json:"buy_now_price"`      // zero means no buy-now
	ScheduledStartAt time.Time       `json:"scheduled_start_at"` // zero means no start gate
	ScheduledEndAt   time.Time       `json:"scheduled_end_at"`
	Status           AuctionStatus   `json:"status"`
}

// HasBuyNow reports whether a buy-now price is configured.
func (a Auction) HasBuyNow() bool {
	return a.BuyNowPrice.IsPositive()
}

// Bid represents a single amount offer by one bidder against one auction.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    BidStatus       `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// PresenceSession is the ephemeral record of one connected viewer. It carries
// no authority over bidding and is expired by heartbeat timeout.
type PresenceSession struct {
	AuctionID     string    `json:"auction_id"`
	ViewerID      string    `json:"viewer_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}
