// Package presence tracks viewers currently watching an auction. Sessions
// are ephemeral, expire by heartbeat timeout, and carry no authority over
// bidding: presence loss never blocks a submission.
package presence

import (
	"context"
	"sync"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/internal/realtime"
)

// Tracker is a concurrency-safe registry of live presence sessions keyed by
// auction and viewer. Every change to an auction's viewer count is emitted
// through the broadcaster.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]map[string]*model.PresenceSession // key: auctionID -> viewerID
	ttl      time.Duration
	bc       *realtime.Broadcaster
	cancel   context.CancelFunc
	now      func() time.Time
}

// NewTracker creates a Tracker expiring sessions that miss a heartbeat for
// longer than ttl.
func NewTracker(ttl time.Duration, bc *realtime.Broadcaster) *Tracker {
	return &Tracker{
		sessions: make(map[string]map[string]*model.PresenceSession),
		ttl:      ttl,
		bc:       bc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the janitor that expires stale sessions in the background.
func (t *Tracker) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	go t.janitor(ctx)
}

// Stop cancels the janitor.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// Join creates or refreshes the viewer's session on an auction.
func (t *Tracker) Join(auctionID, viewerID string) {
	now := t.now()

	t.mu.Lock()
	if t.sessions[auctionID] == nil {
		t.sessions[auctionID] = make(map[string]*model.PresenceSession)
	}
	session, ok := t.sessions[auctionID][viewerID]
	if ok {
		session.LastHeartbeat = now
		t.mu.Unlock()
		return
	}
	t.sessions[auctionID][viewerID] = &model.PresenceSession{
		AuctionID:     auctionID,
		ViewerID:      viewerID,
		ConnectedAt:   now,
		LastHeartbeat: now,
	}
	count := len(t.sessions[auctionID])
	t.mu.Unlock()

	t.bc.Publish(realtime.NewPresenceCount(auctionID, count))
}

// Heartbeat extends the session's TTL. Unknown sessions are re-created so a
// viewer whose session expired during a network hiccup silently rejoins.
func (t *Tracker) Heartbeat(auctionID, viewerID string) {
	t.mu.Lock()
	session, ok := t.sessions[auctionID][viewerID]
	if ok {
		session.LastHeartbeat = t.now()
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.Join(auctionID, viewerID)
}

// Leave destroys the viewer's session on an auction.
func (t *Tracker) Leave(auctionID, viewerID string) {
	t.mu.Lock()
	room, ok := t.sessions[auctionID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if _, ok := room[viewerID]; !ok {
		t.mu.Unlock()
		return
	}
	delete(room, viewerID)
	count := len(room)
	if count == 0 {
		delete(t.sessions, auctionID)
	}
	t.mu.Unlock()

	t.bc.Publish(realtime.NewPresenceCount(auctionID, count))
}

// Count returns the number of live sessions for an auction.
func (t *Tracker) Count(auctionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions[auctionID])
}

// janitor periodically expires sessions whose heartbeat is older than the TTL.
func (t *Tracker) janitor(ctx context.Context) {
	interval := t.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.expireStale()
		}
	}
}

// expireStale removes timed-out sessions and emits updated counts.
func (t *Tracker) expireStale() {
	deadline := t.now().Add(-t.ttl)
	changed := make(map[string]int)

	t.mu.Lock()
	for auctionID, room := range t.sessions {
		for viewerID, session := range room {
			if session.LastHeartbeat.Before(deadline) {
				delete(room, viewerID)
				changed[auctionID] = len(room)
			}
		}
		if len(room) == 0 {
			delete(t.sessions, auctionID)
		}
	}
	t.mu.Unlock()

	for auctionID, count := range changed {
		t.bc.Publish(realtime.NewPresenceCount(auctionID, count))
	}
}
