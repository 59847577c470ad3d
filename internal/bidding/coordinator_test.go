package bidding

import (
	"errors"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/lifecycle"
	model "auction-engine/internal/models"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// newTestService wires a coordinator against a real in-memory ledger and a
// real status machine (sweep not started).
func newTestService(t *testing.T, auctions ...model.Auction) (*Service, *repository.MemoryRepo, *realtime.Broadcaster) {
	t.Helper()

	repo := repository.NewMemoryRepo()
	for _, a := range auctions {
		require.NoError(t, repo.AddAuction(a))
	}
	bc := realtime.NewBroadcaster(32)
	machine := lifecycle.NewMachine(repo, bc, nil, time.Second)
	svc := NewService(repo, machine, bc, nil, nil, dec(100), 500*time.Millisecond)
	return svc, repo, bc
}

func ongoingAuction(id string, startPrice int64) model.Auction {
	return model.Auction{
		AuctionID:      id,
		StartPrice:     dec(startPrice),
		ScheduledEndAt: time.Now().UTC().Add(time.Hour),
		Status:         model.AuctionOngoing,
	}
}

func TestService_PlaceBid_MinimumIncrement(t *testing.T) {
	t.Parallel()

	// start price 5000, flat increment 100
	svc, _, _ := newTestService(t, ongoingAuction("auction1", 5000))

	// below the minimum next bid
	_, err := svc.PlaceBid("auction1", "bidder1", dec(5050))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	require.Contains(t, err.Error(), "5100")

	// exactly the minimum is accepted
	bid, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.NoError(t, err)
	require.Equal(t, model.BidActive, bid.Status)
	require.NotEmpty(t, bid.BidID)
	_, parseErr := uuid.Parse(bid.BidID)
	require.NoError(t, parseErr, "BidID should be a valid UUID")

	// repeating the same amount is now below the raised minimum
	_, err = svc.PlaceBid("auction1", "bidder2", dec(5100))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	require.Contains(t, err.Error(), "5200")

	// one below the new minimum still rejected, the minimum accepted
	_, err = svc.PlaceBid("auction1", "bidder2", dec(5199))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	_, err = svc.PlaceBid("auction1", "bidder2", dec(5200))
	require.NoError(t, err)
}

func TestService_PlaceBid_Rejections(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name      string
		auction   *model.Auction
		auctionID string
		bidderID  string
		amount    decimal.Decimal
		wantErr   error
	}{
		{
			name:      "empty_auction_id",
			auctionID: "",
			bidderID:  "bidder1",
			amount:    dec(5100),
			wantErr:   auctionerrors.ErrInvalidBid,
		},
		{
			name:      "zero_amount",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    decimal.Zero,
			wantErr:   auctionerrors.ErrInvalidBid,
		},
		{
			name:      "negative_amount",
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    dec(-50),
			wantErr:   auctionerrors.ErrInvalidBid,
		},
		{
			name:      "auction_not_found",
			auctionID: "missing",
			bidderID:  "bidder1",
			amount:    dec(5100),
			wantErr:   auctionerrors.ErrAuctionNotFound,
		},
		{
			name: "auction_already_ended",
			auction: &model.Auction{
				AuctionID:      "auction1",
				StartPrice:     dec(5000),
				ScheduledEndAt: now.Add(time.Hour),
				Status:         model.AuctionEnded,
			},
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    dec(5100),
			wantErr:   auctionerrors.ErrAuctionNotOngoing,
		},
		{
			name: "auction_not_yet_started",
			auction: &model.Auction{
				AuctionID:        "auction1",
				StartPrice:       dec(5000),
				ScheduledStartAt: now.Add(time.Hour),
				ScheduledEndAt:   now.Add(2 * time.Hour),
				Status:           model.AuctionUpcoming,
			},
			auctionID: "auction1",
			bidderID:  "bidder1",
			amount:    dec(5100),
			wantErr:   auctionerrors.ErrAuctionNotOngoing,
		},
		{
			name:      "unauthenticated_bidder",
			auctionID: "auction1",
			bidderID:  "",
			amount:    dec(5100),
			wantErr:   auctionerrors.ErrUnauthenticated,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			auction := ongoingAuction("auction1", 5000)
			if tc.auction != nil {
				auction = *tc.auction
			}
			svc, repo, _ := newTestService(t, auction)

			_, err := svc.PlaceBid(tc.auctionID, tc.bidderID, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)

			// a rejected submission never touches the ledger
			bids, err := repo.GetBidsByAuction("auction1")
			require.NoError(t, err)
			require.Empty(t, bids)
		})
	}
}

func TestService_PlaceBid_ExpiredButUnsweptAuction(t *testing.T) {
	t.Parallel()

	// persisted status still says ongoing, but the end time has passed;
	// the inline evaluation must reject the submission
	auction := model.Auction{
		AuctionID:      "auction1",
		StartPrice:     dec(5000),
		ScheduledEndAt: time.Now().UTC().Add(-time.Second),
		Status:         model.AuctionOngoing,
	}
	svc, repo, _ := newTestService(t, auction)

	_, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotOngoing)

	settled, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, settled.Status)
}

func TestService_PlaceBid_OutbidFlow(t *testing.T) {
	t.Parallel()

	svc, repo, bc := newTestService(t, ongoingAuction("auction1", 5000))

	// bidder1 watches the room under their own viewer id
	sub := bc.Subscribe("auction1", "bidder1")
	defer bc.Unsubscribe(sub)

	first, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.NoError(t, err)
	second, err := svc.PlaceBid("auction1", "bidder2", dec(5300))
	require.NoError(t, err)

	// previous active bid demoted the instant the higher bid landed
	bids, err := repo.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, model.BidOutbid, bids[0].Status)
	require.Equal(t, model.BidActive, bids[1].Status)

	ev := <-sub.Events()
	require.Equal(t, realtime.EventBidAccepted, ev.Type)
	require.Equal(t, first.BidID, ev.Bid.BidID)

	ev = <-sub.Events()
	require.Equal(t, realtime.EventBidAccepted, ev.Type)
	require.Equal(t, second.BidID, ev.Bid.BidID)

	// targeted outbid notice addressed to the demoted bidder
	ev = <-sub.Events()
	require.Equal(t, realtime.EventBidOutbid, ev.Type)
	require.Equal(t, "bidder1", ev.BidderID)
}

func TestService_PlaceBid_BuyNow(t *testing.T) {
	t.Parallel()

	auction := ongoingAuction("auction1", 5000)
	auction.BuyNowPrice = dec(8000)
	svc, repo, _ := newTestService(t, auction)

	bid, err := svc.PlaceBid("auction1", "bidder1", dec(8500))
	require.NoError(t, err)
	require.Equal(t, model.BidWon, bid.Status)

	settled, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionSold, settled.Status)

	// sold auctions accept no further submissions
	_, err = svc.PlaceBid("auction1", "bidder2", dec(9000))
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotOngoing)
}

func TestService_PlaceBid_ConcurrentDeterminism(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t, ongoingAuction("auction1", 5000))

	amounts := []int64{5200, 5300}
	results := make([]error, len(amounts))

	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		i, amount := i, amount
		go func() {
			defer wg.Done()
			_, results[i] = svc.PlaceBid("auction1", "bidder-a", dec(amount))
		}()
	}
	wg.Wait()

	// $5300 always wins regardless of interleaving: either $5200 landed
	// first and was demoted, or it arrived second and was rejected
	highest, err := repo.GetActiveBid("auction1")
	require.NoError(t, err)
	require.True(t, highest.Amount.Equal(dec(5300)), "got %s", highest.Amount)
	require.NoError(t, results[1])

	bids, err := repo.GetBidsByAuction("auction1")
	require.NoError(t, err)

	active := 0
	prev := decimal.Zero
	for _, b := range bids {
		if b.Status == model.BidActive {
			active++
		}
		// accepted amounts strictly increase in commit order
		require.True(t, b.Amount.GreaterThan(prev), "amounts not strictly increasing")
		prev = b.Amount
	}
	require.Equal(t, 1, active)
}

func TestService_PlaceBid_Busy(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, ongoingAuction("auction1", 5000))
	svc.timeout = 50 * time.Millisecond

	// occupy the serialization slot for the auction
	require.True(t, svc.slots.acquire("auction1", 0))
	defer svc.slots.release("auction1")

	_, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.ErrorIs(t, err, auctionerrors.ErrCoordinatorBusy)

	// other auctions are unaffected by the held slot
	svc2, _, _ := newTestService(t, ongoingAuction("auction2", 3000))
	_, err = svc2.PlaceBid("auction2", "bidder1", dec(3100))
	require.NoError(t, err)
}

type stubLifecycle struct {
	auction model.Auction
	err     error
}

func (s stubLifecycle) Evaluate(string) (model.Auction, error) { return s.auction, s.err }
func (s stubLifecycle) MarkSold(string) error                  { return nil }

func TestService_PlaceBid_PersistenceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	machine := stubLifecycle{auction: ongoingAuction("auction1", 5000)}
	bc := realtime.NewBroadcaster(8)
	svc := NewService(mockRepo, machine, bc, nil, nil, dec(100), time.Second)

	mockRepo.EXPECT().GetBidsByAuction("auction1").Return(nil, nil)
	mockRepo.EXPECT().CommitBid(gomock.Any(), "").Return(errors.New("ledger write failed"))

	_, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.ErrorIs(t, err, auctionerrors.ErrPersistence)
	require.Contains(t, err.Error(), "ledger write failed")
}

func TestService_GetAuctionState(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, ongoingAuction("auction1", 5000))

	state, err := svc.GetAuctionState("auction1")
	require.NoError(t, err)
	require.Nil(t, state.HighestBid)
	require.True(t, state.CurrentPrice.Equal(dec(5000)))
	require.True(t, state.MinimumNextBid.Equal(dec(5100)))
	require.Equal(t, 0, state.BidCount)
	require.Greater(t, state.RemainingSeconds, int64(0))

	accepted, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.NoError(t, err)

	state, err = svc.GetAuctionState("auction1")
	require.NoError(t, err)
	require.NotNil(t, state.HighestBid)
	require.Equal(t, accepted.BidID, state.HighestBid.BidID)
	require.True(t, state.CurrentPrice.Equal(dec(5100)))
	require.True(t, state.MinimumNextBid.Equal(dec(5200)))
	require.Equal(t, 1, state.BidCount)

	_, err = svc.GetAuctionState("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	_, err = svc.GetAuctionState("")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
}

func TestService_ListAuctionStates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t,
		ongoingAuction("auction1", 5000),
		ongoingAuction("auction2", 3000),
	)

	states, err := svc.ListAuctionStates()
	require.NoError(t, err)
	require.Len(t, states, 2)
}

func TestService_GetBidHistory(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t, ongoingAuction("auction1", 5000))

	_, err := svc.PlaceBid("auction1", "bidder1", dec(5100))
	require.NoError(t, err)
	_, err = svc.PlaceBid("auction1", "bidder2", dec(5300))
	require.NoError(t, err)
	_, err = svc.PlaceBid("auction1", "bidder1", dec(5400))
	require.NoError(t, err)

	// a cancelled bid lands in the ledger through the administrative
	// path and must never show in history
	require.NoError(t, repo.CommitBid(model.Bid{
		BidID:     "cancelled-bid",
		AuctionID: "auction1",
		BidderID:  "bidder3",
		Amount:    dec(9999),
		Status:    model.BidCancelled,
		CreatedAt: time.Now().UTC(),
	}, ""))

	history, err := svc.GetBidHistory("auction1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.True(t, history[0].Amount.Equal(dec(5400)))
	require.True(t, history[1].Amount.Equal(dec(5300)))
	require.True(t, history[2].Amount.Equal(dec(5100)))

	limited, err := svc.GetBidHistory("auction1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	_, err = svc.GetBidHistory("", 0)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)

	_, err = svc.GetBidHistory("missing", 0)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}
