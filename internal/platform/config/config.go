package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool

	// Remote ledger store
	LedgerAPIURL     string
	LedgerAPITimeout time.Duration

	// Edit controller bounds
	SmoothingMaxMonths     int
	BalanceTolerance       decimal.Decimal
	SmoothingLastTolerance decimal.Decimal
	SessionTTL             time.Duration
	AccountCacheTTL        time.Duration

	// HTTP surface
	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("LEDGER_API_URL", "http://localhost:8000")
	viper.SetDefault("LEDGER_API_TIMEOUT", "10s")
	// Amortization cap: ten years of monthly installments.
	viper.SetDefault("SMOOTHING_MAX_MONTHS", 120)
	// Tolerances are plain currency values so zero-decimal currencies can be
	// accommodated by configuration.
	viper.SetDefault("BALANCE_TOLERANCE", "0.01")
	viper.SetDefault("SMOOTHING_LAST_TOLERANCE", "1.00")
	viper.SetDefault("SESSION_TTL", "2h")
	viper.SetDefault("ACCOUNT_CACHE_TTL", "5m")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.LedgerAPIURL = viper.GetString("LEDGER_API_URL")
	if cfg.LedgerAPIURL == "" {
		log.Println("Warning: LEDGER_API_URL environment variable not set.")
	}
	cfg.LedgerAPITimeout = viper.GetDuration("LEDGER_API_TIMEOUT")

	cfg.SmoothingMaxMonths = viper.GetInt("SMOOTHING_MAX_MONTHS")
	if cfg.SmoothingMaxMonths < 2 {
		return nil, fmt.Errorf("SMOOTHING_MAX_MONTHS must be at least 2, got %d", cfg.SmoothingMaxMonths)
	}

	var err error
	cfg.BalanceTolerance, err = decimal.NewFromString(viper.GetString("BALANCE_TOLERANCE"))
	if err != nil {
		return nil, fmt.Errorf("invalid BALANCE_TOLERANCE: %w", err)
	}
	// The balance check accepts deltas strictly below the tolerance, so zero
	// would reject even an exactly balanced set.
	if cfg.BalanceTolerance.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("BALANCE_TOLERANCE must be positive, got %s", cfg.BalanceTolerance)
	}
	cfg.SmoothingLastTolerance, err = decimal.NewFromString(viper.GetString("SMOOTHING_LAST_TOLERANCE"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMOOTHING_LAST_TOLERANCE: %w", err)
	}
	// Zero is a valid setting: the last installment must then match exactly.
	if cfg.SmoothingLastTolerance.IsNegative() {
		return nil, fmt.Errorf("SMOOTHING_LAST_TOLERANCE must not be negative, got %s", cfg.SmoothingLastTolerance)
	}

	cfg.SessionTTL = viper.GetDuration("SESSION_TTL")
	cfg.AccountCacheTTL = viper.GetDuration("ACCOUNT_CACHE_TTL")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = viper.GetStringSlice("CORS_ALLOWED_ORIGINS")

	return cfg, nil
}
