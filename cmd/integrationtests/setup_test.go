package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/bidding"
	"auction-engine/internal/lifecycle"
	model "auction-engine/internal/models"
	"auction-engine/internal/presence"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const testMinIncrement = 100

// SetupTestRouter wires the full in-memory stack and seeds the given auctions.
func SetupTestRouter(t *testing.T, auctions ...model.Auction) (*gin.Engine, *repository.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, auction := range auctions {
		if err := repo.AddAuction(auction); err != nil {
			t.Fatalf("failed to seed auction %s: %v", auction.AuctionID, err)
		}
	}

	bc := realtime.NewBroadcaster(16)
	tracker := presence.NewTracker(30*time.Second, bc)
	machine := lifecycle.NewMachine(repo, bc, nil, time.Second)
	service := bidding.NewService(repo, machine, bc, nil, bidding.AllowAllAuthenticator{}, decimal.NewFromInt(testMinIncrement), 2*time.Second)
	return server.SetupRouter(service, bc, tracker), repo
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

func ongoingAuction(id string, startPrice, buyNow int64) model.Auction {
	auction := model.Auction{
		AuctionID:      id,
		VehicleMake:    "Toyota",
		VehicleModel:   "Land Cruiser",
		VehicleYear:    2021,
		StartPrice:     decimal.NewFromInt(startPrice),
		ScheduledEndAt: time.Now().UTC().Add(time.Hour),
		Status:         model.AuctionOngoing,
	}
	if buyNow > 0 {
		auction.BuyNowPrice = decimal.NewFromInt(buyNow)
	}
	return auction
}

func placeBidBody(auctionID, bidderID string, amount float64) map[string]any {
	return map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount,
	}
}
