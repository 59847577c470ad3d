package bidding

import (
	"sync"
	"time"
)

// auctionSlots provides the per-auction serialization point: one capacity-1
// slot per auction ID. Holding the slot makes the holder the single writer
// for that auction; submissions for different auctions proceed in parallel.
type auctionSlots struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newAuctionSlots() *auctionSlots {
	return &auctionSlots{slots: make(map[string]chan struct{})}
}

func (s *auctionSlots) slot(auctionID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[auctionID]
	if !ok {
		slot = make(chan struct{}, 1)
		s.slots[auctionID] = slot
	}
	return slot
}

// acquire takes the auction's slot, waiting at most timeout. Returns false on
// timeout so stale submissions fail fast instead of piling up.
func (s *auctionSlots) acquire(auctionID string, timeout time.Duration) bool {
	slot := s.slot(auctionID)

	select {
	case slot <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// release frees the auction's slot. Must only be called by the holder.
func (s *auctionSlots) release(auctionID string) {
	<-s.slot(auctionID)
}
