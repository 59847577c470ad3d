// Package resolver determines the single current highest bid for an auction
// from its ledger, and the minimum acceptable next bid. All functions are
// pure; the resolved value is derived on demand and never cached.
package resolver

import (
	"sort"

	"auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// HighestBid returns the non-cancelled bid with the greatest amount. Ties are
// broken by earliest CreatedAt: the first bid to reach an amount wins. The
// second return value is false when no eligible bid exists.
func HighestBid(bids []models.Bid) (models.Bid, bool) {
	var highest models.Bid
	found := false

	for _, b := range bids {
		if b.Status == models.BidCancelled {
			continue
		}
		if !found {
			highest = b
			found = true
			continue
		}
		if b.Amount.GreaterThan(highest.Amount) ||
			(b.Amount.Equal(highest.Amount) && b.CreatedAt.Before(highest.CreatedAt)) {
			highest = b
		}
	}
	return highest, found
}

// ReferencePrice is the amount new bids are measured against: the highest bid
// amount when one exists, the auction's start price otherwise.
func ReferencePrice(auction models.Auction, highest models.Bid, hasHighest bool) decimal.Decimal {
	if hasHighest {
		return highest.Amount
	}
	return auction.StartPrice
}

// MinimumNextBid returns the smallest acceptable amount for the next bid:
// reference price plus a flat configured increment.
func MinimumNextBid(auction models.Auction, highest models.Bid, hasHighest bool, increment decimal.Decimal) decimal.Decimal {
	return ReferencePrice(auction, highest, hasHighest).Add(increment)
}

// SortByAmount orders bids for history display: descending by amount, ties by
// earliest CreatedAt first. The input slice is not modified.
func SortByAmount(bids []models.Bid) []models.Bid {
	ordered := append([]models.Bid(nil), bids...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Amount.Equal(ordered[j].Amount) {
			return ordered[i].Amount.GreaterThan(ordered[j].Amount)
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}
