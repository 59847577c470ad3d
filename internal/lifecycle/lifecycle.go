// Package lifecycle drives auction status transitions. The machine is
// time-driven, not request-driven: it is evaluated inline on every bid
// submission and state read, and by a periodic sweep that flips auctions past
// their end time even when no bids arrive.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/utils"
)

// Machine evaluates the upcoming -> ongoing -> {ended, sold} state machine
// against wall-clock time. All transitions go through the ledger's
// compare-and-set primitives, so evaluating the machine any number of times
// around the same instant settles on the same state and promotes at most one
// winning bid.
type Machine struct {
	repo     repository.AuctionDB
	bc       *realtime.Broadcaster
	notifier notify.Notifier
	now      func() time.Time
	cancel   context.CancelFunc
	interval time.Duration
}

// NewMachine creates a status machine sweeping at the given interval.
func NewMachine(repo repository.AuctionDB, bc *realtime.Broadcaster, notifier notify.Notifier, interval time.Duration) *Machine {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Machine{
		repo:     repo,
		bc:       bc,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		interval: interval,
	}
}

// Evaluate advances one auction to the status implied by the current time and
// returns the settled record. The persisted status is authoritative only
// after this call: an ongoing auction past its end time is flipped here, so
// callers never act on a stale status.
func (m *Machine) Evaluate(auctionID string) (model.Auction, error) {
	auction, err := m.repo.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: evaluate auction %s: %w", auctionID, err)
	}

	now := m.now()

	if auction.Status == model.AuctionUpcoming && m.startGateOpen(auction, now) {
		flipped, err := m.repo.TransitionStatus(auctionID, model.AuctionUpcoming, model.AuctionOngoing)
		if err != nil {
			return model.Auction{}, fmt.Errorf("lifecycle: open auction %s: %w", auctionID, err)
		}
		auction.Status = model.AuctionOngoing
		if flipped {
			m.announce(realtime.NewStatusChanged(auctionID, model.AuctionOngoing, nil))
		}
	}

	if auction.Status == model.AuctionOngoing && !now.Before(auction.ScheduledEndAt) {
		winner, flipped, err := m.repo.CloseAuction(auctionID, model.AuctionEnded)
		if err != nil {
			return model.Auction{}, fmt.Errorf("lifecycle: end auction %s: %w", auctionID, err)
		}
		if flipped {
			m.announce(realtime.NewStatusChanged(auctionID, model.AuctionEnded, winnerRef(winner)))
		}
	}

	// reload so callers see whatever status actually settled, including
	// flips raced in by another evaluator
	auction, err = m.repo.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: evaluate auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// MarkSold closes an ongoing auction immediately after a buy-now acceptance.
// The winning bid is whatever bid holds active status at the time of the call.
func (m *Machine) MarkSold(auctionID string) error {
	winner, flipped, err := m.repo.CloseAuction(auctionID, model.AuctionSold)
	if err != nil {
		return fmt.Errorf("lifecycle: sell auction %s: %w", auctionID, err)
	}
	if flipped {
		m.announce(realtime.NewStatusChanged(auctionID, model.AuctionSold, winnerRef(winner)))
	}
	return nil
}

// CloseNow performs an administrative closure: sold when a winning bid is
// present, ended otherwise.
func (m *Machine) CloseNow(auctionID string) error {
	status := model.AuctionEnded
	if _, err := m.repo.GetActiveBid(auctionID); err == nil {
		status = model.AuctionSold
	}

	winner, flipped, err := m.repo.CloseAuction(auctionID, status)
	if err != nil {
		return fmt.Errorf("lifecycle: close auction %s: %w", auctionID, err)
	}
	if flipped {
		m.announce(realtime.NewStatusChanged(auctionID, status, winnerRef(winner)))
	}
	return nil
}

// Start launches the periodic sweep in the background.
func (m *Machine) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	go m.sweep(ctx)
}

// Stop cancels the sweep.
func (m *Machine) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// sweep re-evaluates every non-terminal auction once per interval.
func (m *Machine) sweep(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, auction := range m.repo.ListAuctions() {
				if auction.Status.Terminal() {
					continue
				}
				if _, err := m.Evaluate(auction.AuctionID); err != nil {
					utils.Warn("lifecycle: sweep evaluation failed", map[string]any{
						"auction_id": auction.AuctionID,
						"error":      err.Error(),
					})
				}
			}
		}
	}
}

// startGateOpen reports whether bidding may open: immediately when no start
// gate is configured, otherwise once the scheduled start has passed.
func (m *Machine) startGateOpen(auction model.Auction, now time.Time) bool {
	return auction.ScheduledStartAt.IsZero() || !now.Before(auction.ScheduledStartAt)
}

// announce fans the transition out to the room and the notification boundary.
func (m *Machine) announce(ev realtime.Event) {
	m.bc.Publish(ev)
	m.notifier.Dispatch(ev)
	utils.Info("lifecycle: auction status changed", map[string]any{
		"auction_id": ev.AuctionID,
		"new_status": string(ev.NewStatus),
	})
}

func winnerRef(winner model.Bid) *model.Bid {
	if winner.BidID == "" {
		return nil
	}
	return &winner
}
