package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/handlers"
	"github.com/ploutos-app/ploutos_edit_api/internal/middleware"
	"github.com/ploutos-app/ploutos_edit_api/internal/platform/config"
	"github.com/ploutos-app/ploutos_edit_api/internal/repositories/ledgerapi"
)

// @title Ploutos Edit API
// @version 1.0
// @description Transaction-split and smoothing edit backend for the Ploutos front end.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	registerCustomValidations(logger)

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	limiterInstance := limiter.New(memory.NewStore(), rate)

	// The remote ledger store is the single external collaborator.
	ledgerClient := ledgerapi.NewClient(cfg.LedgerAPIURL, cfg.LedgerAPITimeout)

	accountService := services.NewAccountService(ledgerClient, cfg.AccountCacheTTL)
	sessionService := services.NewEditSessionService(ledgerClient, accountService, services.EditSessionConfig{
		SmoothingMaxMonths:     cfg.SmoothingMaxMonths,
		BalanceTolerance:       cfg.BalanceTolerance,
		SmoothingLastTolerance: decimal.NewNullDecimal(cfg.SmoothingLastTolerance),
		SessionTTL:             cfg.SessionTTL,
	})

	container := &portssvc.ServiceContainer{
		Account:     accountService,
		EditSession: sessionService,
	}

	handlers.RegisterRoutes(r, cfg, container, limiterInstance)

	logger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("ledger_api", cfg.LedgerAPIURL),
		slog.Int("smoothing_max_months", cfg.SmoothingMaxMonths),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// registerCustomValidations adds the entrytype rule used by allocation DTOs.
func registerCustomValidations(logger *slog.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warn("Gin binding validator engine unavailable; entrytype validation disabled")
		return
	}
	if err := v.RegisterValidation("entrytype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "debit" || s == "credit"
	}); err != nil {
		logger.Error("Failed to register entrytype validation", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
