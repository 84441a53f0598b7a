package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/config"
	"github.com/JonMunkholm/solarerp/internal/core"
	_ "github.com/JonMunkholm/solarerp/internal/core/resources" // Register all resources
	"github.com/JonMunkholm/solarerp/internal/database"
	"github.com/JonMunkholm/solarerp/internal/logging"
	"github.com/JonMunkholm/solarerp/internal/schema"
	"github.com/JonMunkholm/solarerp/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"report_max_concurrent", cfg.Report.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"tax_rate", cfg.Finance.TaxRate,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		applied, err := schema.Migrate(ctx, pool)
		if err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("schema up to date", "applied", len(applied))
	}

	taxRate := decimal.NewFromFloat(cfg.Finance.TaxRate)
	service := core.NewService(pool, core.Options{TaxRate: &taxRate})

	slog.Info("resources registered",
		"count", core.Count(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("resource group", "group", group, "resources", len(core.ByGroup(group)))
	}

	// Cancelled on shutdown; stops background jobs and limiter cleanup.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	server := web.NewServer(jobCtx, service, cfg)

	go service.StartArchiveScheduler(jobCtx, core.ArchiveConfig{
		HotRetentionDays:      cfg.Archive.HotRetentionDays,
		ArchiveRetentionYears: cfg.Archive.ArchiveRetentionYears,
		BatchSize:             cfg.Archive.BatchSize,
		CheckInterval:         cfg.Archive.CheckInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
