package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	specpkg "github.com/billdesk/billdesk/api"
	"github.com/billdesk/billdesk/internal/api"
	"github.com/billdesk/billdesk/internal/auth"
	"github.com/billdesk/billdesk/internal/config"
	"github.com/billdesk/billdesk/internal/database"
	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/metrics"
	"github.com/billdesk/billdesk/internal/provider"
	"github.com/billdesk/billdesk/internal/provider/trongrid"
	"github.com/billdesk/billdesk/internal/reconciler"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		applied, err := db.Migrate(ctx)
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		if len(applied) > 0 {
			slog.Info("applied migrations", "migrations", applied)
		}
	}

	pool := db.Pool()
	userRepo := auth.NewRepository(pool)
	authService := auth.NewService(userRepo, cfg.BcryptCost)
	if _, err := authService.BootstrapAdmin(ctx); err != nil {
		slog.Error("failed to bootstrap admin", "error", err)
		os.Exit(1)
	}

	registry := provider.NewRegistry()
	registry.Register(provider.NetworkTRC20, trongrid.New(
		trongrid.WithBaseURL(cfg.TronGridURL),
		trongrid.WithAPIKey(cfg.TronGridAPIKey),
		trongrid.WithTimeout(cfg.TronGridTimeoutDuration()),
		trongrid.WithRateLimit(cfg.TronGridRPS),
	))
	tron, err := registry.Get(provider.NetworkTRC20)
	if err != nil {
		slog.Error("payment provider unavailable", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tierRepo := tier.NewPostgresRepository(pool)
	invoiceRepo := invoice.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	invoiceService := invoice.NewService(invoiceRepo, tierRepo, settingsRepo, m)

	rec := reconciler.New(invoiceRepo, tron, cfg.PollInterval(),
		reconciler.WithConcurrency(cfg.PaymentPollConcurrency),
		reconciler.WithExpiry(cfg.PaymentExpiry()),
		reconciler.WithMetrics(m),
	)
	go rec.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		Provider:       tron,
		Version:        cfg.Version,
		OpenAPISpec:    specpkg.Spec,
		Metrics:        m,
		Authenticator:  authService,
		Users:          authService,
		UserRepo:       userRepo,
		TierRepo:       tierRepo,
		InvoiceRepo:    invoiceRepo,
		SettingsRepo:   settingsRepo,
		Quoter:         invoiceService,
		Invoices:       invoiceService,
		PaymentChecker: rec,
		DefaultCompany: cfg.DefaultCompanyName,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting billdesk server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
