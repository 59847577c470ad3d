package repository

import (
	"fmt"
	"sync"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB defines the auction and bid ledger storage interface. The ledger
// exclusively owns bid status: CommitBid and CloseAuction are the only ways a
// bid's status ever changes.
type AuctionDB interface {
	AddAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() []model.Auction
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	GetActiveBid(auctionID string) (model.Bid, error)
	CommitBid(bid model.Bid, demoteBidID string) error
	TransitionStatus(auctionID string, from, to model.AuctionStatus) (bool, error)
	CloseAuction(auctionID string, to model.AuctionStatus) (model.Bid, bool, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
	bids     map[string][]model.Bid   // key: auctionID -> bids in commit order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
	}
}

// AddAuction registers an auction record
func (r *MemoryRepo) AddAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("add auction: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction record for the given ID
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// ListAuctions returns all auction records
func (r *MemoryRepo) ListAuctions() []model.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		auctions = append(auctions, a)
	}
	return auctions
}

// GetBidsByAuction returns all bids for an auction in commit order
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid(nil), r.bids[auctionID]...), nil
}

// GetActiveBid returns the single bid currently holding active status
func (r *MemoryRepo) GetActiveBid(auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return model.Bid{}, fmt.Errorf("get active bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	for _, b := range r.bids[auctionID] {
		if b.Status == model.BidActive {
			return b, nil
		}
	}
	return model.Bid{}, fmt.Errorf("get active bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
}

// CommitBid appends a new active bid and, in the same critical section,
// demotes the previously active bid to outbid. The single-active invariant
// holds before and after every call.
func (r *MemoryRepo) CommitBid(bid model.Bid, demoteBidID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status.Terminal() {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotOngoing)
	}

	if demoteBidID != "" {
		ledger := r.bids[bid.AuctionID]
		for i := range ledger {
			if ledger[i].BidID == demoteBidID && ledger[i].Status == model.BidActive {
				ledger[i].Status = model.BidOutbid
			}
		}
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// TransitionStatus flips the auction status from one state to another.
// Returns false without error when the auction is no longer in the from
// state, which makes repeated evaluations around the same instant idempotent.
func (r *MemoryRepo) TransitionStatus(auctionID string, from, to model.AuctionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("transition auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != from {
		return false, nil
	}
	auction.Status = to
	r.auctions[auctionID] = auction
	return true, nil
}

// CloseAuction moves an ongoing auction into a terminal state and promotes
// the active bid, if any, to won. The promotion happens at most once: a
// second call observes the terminal status and reports flipped=false. The
// returned bid has an empty BidID when the auction closed without a winner.
func (r *MemoryRepo) CloseAuction(auctionID string, to model.AuctionStatus) (model.Bid, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Bid{}, false, fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if !to.Terminal() {
		return model.Bid{}, false, fmt.Errorf("close auction %s: %w - %s is not a terminal status", auctionID, auctionerrors.ErrInvalidBid, to)
	}
	if auction.Status != model.AuctionOngoing {
		return model.Bid{}, false, nil
	}

	auction.Status = to
	r.auctions[auctionID] = auction

	var winner model.Bid
	ledger := r.bids[auctionID]
	for i := range ledger {
		if ledger[i].Status == model.BidActive {
			ledger[i].Status = model.BidWon
			winner = ledger[i]
		}
	}
	return winner, true, nil
}
