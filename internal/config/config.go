package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL         string
	ServerAddr          string
	ExpiryWindow        time.Duration
	ExpirySweepInterval time.Duration
	WarnSweepInterval   time.Duration
	WarnLeadTime        time.Duration
	OutboxInterval      time.Duration
	OfferFloorExpr      string
}

// Load reads configuration from environment. A .env file is honored when
// present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "carnegotiate")
		pass := getenv("POSTGRES_PASSWORD", "carnegotiate_pass")
		db := getenv("POSTGRES_DB", "carnegotiate")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	return &Config{
		DatabaseURL:         dsn,
		ServerAddr:          getenv("SERVER_ADDR", "0.0.0.0:8080"),
		ExpiryWindow:        parseDuration(getenv("EXPIRY_WINDOW", "72h"), 72*time.Hour),
		ExpirySweepInterval: parseDuration(getenv("EXPIRY_SWEEP_INTERVAL", "5m"), 5*time.Minute),
		WarnSweepInterval:   parseDuration(getenv("WARNING_SWEEP_INTERVAL", "1h"), time.Hour),
		WarnLeadTime:        parseDuration(getenv("WARNING_LEAD_TIME", "24h"), 24*time.Hour),
		OutboxInterval:      parseDuration(getenv("OUTBOX_INTERVAL", "5s"), 5*time.Second),
		OfferFloorExpr:      getenv("OFFER_FLOOR_EXPR", "asking_price * 0.5"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
