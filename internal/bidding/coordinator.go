package bidding

import (
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/countdown"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/internal/resolver"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=coordinator.go -destination=mock_coordinator.go -package=bidding

// Authenticator is the external identity collaborator. It confirms that a
// bidder ID belongs to an authenticated bidder.
type Authenticator interface {
	Authenticate(bidderID string) error
}

// AllowAllAuthenticator accepts any non-empty bidder ID. Deployments plug a
// real identity service behind the Authenticator interface instead.
type AllowAllAuthenticator struct{}

func (AllowAllAuthenticator) Authenticate(bidderID string) error {
	if bidderID == "" {
		return auctionerrors.ErrUnauthenticated
	}
	return nil
}

// Lifecycle is the slice of the status machine the coordinator drives:
// inline evaluation before validating a submission, and immediate closure on
// a buy-now acceptance.
type Lifecycle interface {
	Evaluate(auctionID string) (models.Auction, error)
	MarkSold(auctionID string) error
}

// State is the read-model of one auction returned by query paths.
type State struct {
	Auction          models.Auction  `json:"auction"`
	HighestBid       *models.Bid     `json:"highest_bid,omitempty"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	MinimumNextBid   decimal.Decimal `json:"minimum_next_bid"`
	BidCount         int             `json:"bid_count"`
	ServerTime       time.Time       `json:"server_time"`
	RemainingSeconds int64           `json:"remaining_seconds"`
}

// Service is the bid submission coordinator: the only component permitted to
// commit active-status bids. Validation and commit for one auction are
// serialized behind a per-auction slot, so two submissions are never
// evaluated against a stale highest-bid snapshot simultaneously.
type Service struct {
	repo      repository.AuctionDB
	machine   Lifecycle
	bc        *realtime.Broadcaster
	notifier  notify.Notifier
	auth      Authenticator
	increment decimal.Decimal
	timeout   time.Duration
	slots     *auctionSlots
}

// NewService creates a coordinator with the given collaborators. increment is
// the flat minimum raise over the current reference price; timeout bounds how
// long a submission may wait for the serialization slot.
func NewService(repo repository.AuctionDB, machine Lifecycle, bc *realtime.Broadcaster, notifier notify.Notifier, auth Authenticator, increment decimal.Decimal, timeout time.Duration) *Service {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if auth == nil {
		auth = AllowAllAuthenticator{}
	}
	return &Service{
		repo:      repo,
		machine:   machine,
		bc:        bc,
		notifier:  notifier,
		auth:      auth,
		increment: increment,
		timeout:   timeout,
		slots:     newAuctionSlots(),
	}
}

// PlaceBid validates and commits a bidder's submission against one auction.
// A rejection never touches the ledger; an accepted bid is returned with its
// final status (active, or won when it triggered a buy-now sale).
func (s *Service) PlaceBid(auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("coordinator: %w - missing auction ID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return models.Bid{}, fmt.Errorf("coordinator: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	if !s.slots.acquire(auctionID, s.timeout) {
		return models.Bid{}, fmt.Errorf("coordinator: %w - auction %s", auctionerrors.ErrCoordinatorBusy, auctionID)
	}
	defer s.slots.release(auctionID)

	auction, err := s.machine.Evaluate(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("coordinator: failed to evaluate auction %s: %w", auctionID, err)
	}
	if auction.Status != models.AuctionOngoing {
		return models.Bid{}, fmt.Errorf("coordinator: %w - auction %s is %s", auctionerrors.ErrAuctionNotOngoing, auctionID, auction.Status)
	}

	if err := s.auth.Authenticate(bidderID); err != nil {
		return models.Bid{}, fmt.Errorf("coordinator: %w - bidder %q", auctionerrors.ErrUnauthenticated, bidderID)
	}

	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("coordinator: failed to read ledger for auction %s: %w", auctionID, err)
	}

	highest, hasHighest := resolver.HighestBid(bids)
	minimum := resolver.MinimumNextBid(auction, highest, hasHighest, s.increment)
	if amount.LessThan(minimum) {
		return models.Bid{}, fmt.Errorf("coordinator: %w - minimum next bid is %s", auctionerrors.ErrBidTooLow, minimum.String())
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    models.BidActive,
		CreatedAt: time.Now().UTC(),
	}

	demoteBidID := ""
	if hasHighest && highest.Status == models.BidActive {
		demoteBidID = highest.BidID
	}

	if err := s.repo.CommitBid(bid, demoteBidID); err != nil {
		return models.Bid{}, fmt.Errorf("coordinator: %w: commit for auction %s: %w", auctionerrors.ErrPersistence, auctionID, err)
	}

	s.bc.Publish(realtime.NewBidAccepted(bid))
	if demoteBidID != "" && highest.BidderID != bidderID {
		outbid := realtime.NewBidOutbid(auctionID, highest.BidderID)
		s.bc.Publish(outbid)
		s.notifier.Dispatch(outbid)
	}

	if auction.HasBuyNow() && amount.GreaterThanOrEqual(auction.BuyNowPrice) {
		if err := s.machine.MarkSold(auctionID); err != nil {
			utils.Error("coordinator: buy-now closure failed", map[string]any{
				"auction_id": auctionID,
				"bid_id":     bid.BidID,
				"error":      err.Error(),
			})
		} else {
			bid.Status = models.BidWon
		}
	}

	utils.Info("coordinator: bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.BidID,
		"bidder_id":  bidderID,
		"amount":     amount.String(),
		"status":     string(bid.Status),
	})
	return bid, nil
}

// GetAuctionState returns the live read-model for one auction: current price,
// highest bid, minimum next bid and countdown inputs. The status machine is
// evaluated inline so a stale persisted status is never served.
func (s *Service) GetAuctionState(auctionID string) (State, error) {
	if auctionID == "" {
		return State{}, fmt.Errorf("coordinator: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.machine.Evaluate(auctionID)
	if err != nil {
		return State{}, fmt.Errorf("coordinator: failed to evaluate auction %s: %w", auctionID, err)
	}
	return s.stateOf(auction)
}

// ListAuctionStates returns the live read-model for every known auction.
func (s *Service) ListAuctionStates() ([]State, error) {
	auctions := s.repo.ListAuctions()
	states := make([]State, 0, len(auctions))
	for _, auction := range auctions {
		state, err := s.GetAuctionState(auction.AuctionID)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// GetBidHistory returns the auction's non-cancelled bids ordered descending
// by amount, ties by earliest creation. limit <= 0 means no limit.
func (s *Service) GetBidHistory(auctionID string, limit int) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("coordinator: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("coordinator: failed to get bids for auction %s: %w", auctionID, err)
	}

	visible := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status != models.BidCancelled {
			visible = append(visible, b)
		}
	}

	ordered := resolver.SortByAmount(visible)
	if limit > 0 && limit < len(ordered) {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

// stateOf assembles the read-model from the ledger snapshot.
func (s *Service) stateOf(auction models.Auction) (State, error) {
	bids, err := s.repo.GetBidsByAuction(auction.AuctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
			return State{}, fmt.Errorf("coordinator: state for auction %s: %w", auction.AuctionID, err)
		}
		return State{}, fmt.Errorf("coordinator: failed to read ledger for auction %s: %w", auction.AuctionID, err)
	}

	visible := 0
	for _, b := range bids {
		if b.Status != models.BidCancelled {
			visible++
		}
	}

	now := time.Now().UTC()
	highest, hasHighest := resolver.HighestBid(bids)
	state := State{
		Auction:          auction,
		CurrentPrice:     resolver.ReferencePrice(auction, highest, hasHighest),
		MinimumNextBid:   resolver.MinimumNextBid(auction, highest, hasHighest, s.increment),
		BidCount:         visible,
		ServerTime:       now,
		RemainingSeconds: int64(countdown.Remaining(auction.ScheduledEndAt, now) / time.Second),
	}
	if hasHighest {
		h := highest
		state.HighestBid = &h
	}
	return state, nil
}
