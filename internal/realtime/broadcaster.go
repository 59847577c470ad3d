// Package realtime fans out auction events to every subscriber of an auction
// room. Delivery is best-effort at-least-once: a slow subscriber whose buffer
// is full loses events, and clients de-duplicate by bid ID.
package realtime

import (
	"sync"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/utils"
)

type EventType string

const (
	EventBidAccepted   EventType = "bid_accepted"
	EventBidOutbid     EventType = "bid_outbid"
	EventPresenceCount EventType = "presence_count"
	EventStatusChanged EventType = "status_changed"
)

// Event is the tagged union pushed to auction room subscribers. Which fields
// are set depends on Type.
type Event struct {
	Type       EventType           `json:"type"`
	AuctionID  string              `json:"auction_id"`
	Bid        *model.Bid          `json:"bid,omitempty"`
	BidderID   string              `json:"bidder_id,omitempty"`
	Count      int                 `json:"count,omitempty"`
	NewStatus  model.AuctionStatus `json:"new_status,omitempty"`
	WinningBid *model.Bid          `json:"winning_bid,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// NewBidAccepted builds the event emitted for every committed bid.
func NewBidAccepted(bid model.Bid) Event {
	b := bid
	return Event{Type: EventBidAccepted, AuctionID: bid.AuctionID, Bid: &b, Timestamp: time.Now().UTC()}
}

// NewBidOutbid builds the targeted notice for a demoted bidder.
func NewBidOutbid(auctionID, bidderID string) Event {
	return Event{Type: EventBidOutbid, AuctionID: auctionID, BidderID: bidderID, Timestamp: time.Now().UTC()}
}

// NewPresenceCount builds the viewer count update for an auction room.
func NewPresenceCount(auctionID string, count int) Event {
	return Event{Type: EventPresenceCount, AuctionID: auctionID, Count: count, Timestamp: time.Now().UTC()}
}

// NewStatusChanged builds the lifecycle transition event. winner is nil when
// the auction closed without a winning bid.
func NewStatusChanged(auctionID string, status model.AuctionStatus, winner *model.Bid) Event {
	return Event{Type: EventStatusChanged, AuctionID: auctionID, NewStatus: status, WinningBid: winner, Timestamp: time.Now().UTC()}
}

// Subscription is one viewer's registration on an auction room.
type Subscription struct {
	ID        string
	AuctionID string
	ViewerID  string
	ch        chan Event
}

// Events returns the subscriber's receive channel. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Broadcaster maintains per-auction subscriber registries. The registry is
// mutated under a short-held lock on subscribe/unsubscribe only; publishing
// writes into per-subscriber buffers without waiting on any subscriber.
type Broadcaster struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscription // key: auctionID -> subscription ID
	buffer int
}

// NewBroadcaster creates a Broadcaster whose subscribers each get a channel
// buffered to the given size.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		rooms:  make(map[string]map[string]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a viewer on an auction room. A viewer may hold
// subscriptions on any number of auctions concurrently.
func (b *Broadcaster) Subscribe(auctionID, viewerID string) *Subscription {
	sub := &Subscription{
		ID:        utils.GenerateID(),
		AuctionID: auctionID,
		ViewerID:  viewerID,
		ch:        make(chan Event, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rooms[auctionID] == nil {
		b.rooms[auctionID] = make(map[string]*Subscription)
	}
	b.rooms[auctionID][sub.ID] = sub
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[sub.AuctionID]
	if !ok {
		return
	}
	if _, ok := room[sub.ID]; !ok {
		return
	}
	delete(room, sub.ID)
	if len(room) == 0 {
		delete(b.rooms, sub.AuctionID)
	}
	close(sub.ch)
}

// SubscriberCount returns the number of subscriptions on an auction room.
func (b *Broadcaster) SubscriberCount(auctionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[auctionID])
}

// Publish delivers the event to every subscriber of its auction room.
// bid_outbid events are targeted: only subscriptions registered with the
// matching viewer ID receive them. Because callers publish bid_accepted
// events inside the per-auction serialized section, each subscriber's FIFO
// buffer observes them in ledger commit order.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.rooms[ev.AuctionID] {
		if ev.Type == EventBidOutbid && sub.ViewerID != ev.BidderID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			utils.Warn("realtime: dropping event for slow subscriber", map[string]any{
				"auction_id":      ev.AuctionID,
				"subscription_id": sub.ID,
				"event_type":      string(ev.Type),
			})
		}
	}
}
