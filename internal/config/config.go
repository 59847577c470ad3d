// Package config provides runtime configuration values for the engine.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds configuration knobs for the HTTP server and the bidding engine.
type Config struct {
	HTTPAddr      string
	MinIncrement  decimal.Decimal
	SubmitTimeout time.Duration
	SweepInterval time.Duration
	PresenceTTL   time.Duration
	EventBuffer   int
	AMQPURL       string
	NotifyQueue   string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

func decenv(key string, def int64) decimal.Decimal {
	v := getenv(key, "")
	if v == "" {
		return decimal.NewFromInt(def)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(def)
	}
	return d
}

// Load collects configuration from the environment with defaults. A .env file
// in the working directory is read first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		MinIncrement:  decenv("MIN_INCREMENT", 100),
		SubmitTimeout: durenvms("SUBMIT_TIMEOUT_MS", 2000),
		SweepInterval: durenvms("SWEEP_INTERVAL_MS", 1000),
		PresenceTTL:   durenvms("PRESENCE_TTL_MS", 30000),
		EventBuffer:   atoienv("EVENT_BUFFER", 64),
		AMQPURL:       getenv("AMQP_URL", ""),
		NotifyQueue:   getenv("NOTIFY_QUEUE", "auction.notifications"),
	}
}
