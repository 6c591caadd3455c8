package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mensajeria/soporte-api/internal/config"
	"github.com/mensajeria/soporte-api/internal/importer"
	"github.com/mensajeria/soporte-api/internal/logging"
	"github.com/mensajeria/soporte-api/internal/store"
	"github.com/mensajeria/soporte-api/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Dir); err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Connect to database, waiting for it when starting alongside its container
	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to configure database pool", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.WaitReady(ctx, 30*time.Second); err != nil {
		slog.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Create tables if they do not exist yet
	if err := st.Init(ctx); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	imp := importer.New(st)
	limiter := importer.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	// Create server with config
	server := web.NewServer(st, imp, limiter, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
