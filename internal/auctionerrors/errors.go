package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrPersistence     = errors.New("ledger write failed")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrBidTooLow         = errors.New("bid amount below minimum next bid")
	ErrAuctionNotOngoing = errors.New("auction is not open for bidding")
	ErrUnauthenticated   = errors.New("bidder is not authenticated")
	ErrCoordinatorBusy   = errors.New("auction is busy, retry submission")
)
