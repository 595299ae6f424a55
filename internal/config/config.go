package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Pricing
	GuestFeePct              float64
	HostFeePct               float64
	WeeklyDiscountMinNights  int
	MonthlyDiscountMinNights int
	SettlementCurrency       string

	// Special offers
	OfferTTL           time.Duration
	OfferSweepInterval time.Duration

	// App Defaults
	AppName     string
	GetCacheTTL time.Duration

	// Rate Limiting Defaults
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "reluxrent")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AppName = getEnv("APP_NAME", "ReluxRent")
	cfg.SettlementCurrency = getEnv("SETTLEMENT_CURRENCY", "USD")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.GuestFeePct, err = strconv.ParseFloat(getEnv("GUEST_FEE_PCT", "14.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GUEST_FEE_PCT: %w", err)
	}

	cfg.HostFeePct, err = strconv.ParseFloat(getEnv("HOST_FEE_PCT", "3.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid HOST_FEE_PCT: %w", err)
	}

	cfg.WeeklyDiscountMinNights, err = strconv.Atoi(getEnv("WEEKLY_DISCOUNT_MIN_NIGHTS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEEKLY_DISCOUNT_MIN_NIGHTS: %w", err)
	}

	// 28 nights, the guest-facing threshold. The host reservation-change flow
	// historically used 30; 28 is authoritative now.
	cfg.MonthlyDiscountMinNights, err = strconv.Atoi(getEnv("MONTHLY_DISCOUNT_MIN_NIGHTS", "28"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONTHLY_DISCOUNT_MIN_NIGHTS: %w", err)
	}

	offerTTLHours, err := strconv.ParseInt(getEnv("OFFER_TTL_HOURS", "24"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFER_TTL_HOURS: %w", err)
	}
	cfg.OfferTTL = time.Duration(offerTTLHours) * time.Hour

	offerSweepSeconds, err := strconv.ParseInt(getEnv("OFFER_SWEEP_INTERVAL_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFER_SWEEP_INTERVAL_SECONDS: %w", err)
	}
	cfg.OfferSweepInterval = time.Duration(offerSweepSeconds) * time.Second

	getCacheTTLSeconds, err := strconv.ParseInt(getEnv("GET_CACHE_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GET_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.GetCacheTTL = time.Duration(getCacheTTLSeconds) * time.Second

	// Rate Limiting
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
