package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"auction-engine/internal/bidding"
	"auction-engine/internal/config"
	"auction-engine/internal/lifecycle"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/presence"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()

	repo := repository.NewMemoryRepo()
	prepopulateAuctions(repo)

	notifier := buildNotifier(cfg)
	broadcaster := realtime.NewBroadcaster(cfg.EventBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := presence.NewTracker(cfg.PresenceTTL, broadcaster)
	tracker.Start(ctx)
	defer tracker.Stop()

	machine := lifecycle.NewMachine(repo, broadcaster, notifier, cfg.SweepInterval)
	machine.Start(ctx)
	defer machine.Stop()

	svc := bidding.NewService(repo, machine, broadcaster, notifier, bidding.AllowAllAuthenticator{}, cfg.MinIncrement, cfg.SubmitTimeout)

	router := server.SetupRouter(svc, broadcaster, tracker)

	fmt.Printf("Starting auction server on %s...\n", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// buildNotifier connects the outbound notification boundary when a broker is
// configured and falls back to a no-op otherwise. Notification loss is never
// allowed to block the engine.
func buildNotifier(cfg config.Config) notify.Notifier {
	if cfg.AMQPURL == "" {
		return notify.NopNotifier{}
	}
	notifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyQueue)
	if err != nil {
		utils.Warn("notifier unavailable, continuing without outbound delivery", map[string]any{
			"error": err.Error(),
		})
		return notify.NopNotifier{}
	}
	return notifier
}

// prepopulateAuctions adds sample auctions to the in-memory repo
func prepopulateAuctions(repo *repository.MemoryRepo) {
	now := time.Now().UTC()
	auctions := []model.Auction{
		{
			AuctionID:      "auction1",
			VehicleMake:    "Toyota",
			VehicleModel:   "Land Cruiser",
			VehicleYear:    2021,
			StartPrice:     decimal.NewFromInt(5000),
			BuyNowPrice:    decimal.NewFromInt(20000),
			ScheduledEndAt: now.Add(24 * time.Hour),
			Status:         model.AuctionOngoing,
		},
		{
			AuctionID:      "auction2",
			VehicleMake:    "Hyundai",
			VehicleModel:   "Tucson",
			VehicleYear:    2019,
			StartPrice:     decimal.NewFromInt(3500),
			ScheduledEndAt: now.Add(6 * time.Hour),
			Status:         model.AuctionOngoing,
		},
		{
			AuctionID:        "auction3",
			VehicleMake:      "Kia",
			VehicleModel:     "Sportage",
			VehicleYear:      2020,
			StartPrice:       decimal.NewFromInt(4200),
			ScheduledStartAt: now.Add(2 * time.Hour),
			ScheduledEndAt:   now.Add(26 * time.Hour),
			Status:           model.AuctionUpcoming,
		},
	}

	for _, auction := range auctions {
		if err := repo.AddAuction(auction); err != nil {
			utils.Fatal("failed to seed auction", map[string]any{"auction_id": auction.AuctionID, "error": err.Error()})
		}
	}
}
