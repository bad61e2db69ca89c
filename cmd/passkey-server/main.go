// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
	"github.com/jeremyhahn/go-passkey/pkg/passkey/sqlite"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-passkey server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	// Check for config file override via environment
	if envConfig := os.Getenv("PASSKEY_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("Starting passkey server",
		"version", version,
		"rp_id", cfg.Passkey.RPID,
		"origin", cfg.Passkey.RPOrigin,
		"port", cfg.Server.Port)

	creds, passwords, cleanup, err := openStores(cfg)
	if err != nil {
		logger.Error("Failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	var tokens passkey.TokenGenerator
	if cfg.Auth.JWTSecret != "" {
		tokens, err = passkey.NewJWTGenerator([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, time.Hour)
		if err != nil {
			logger.Error("Failed to create token generator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	svc, err := passkey.NewService(passkey.ServiceParams{
		Config:          &cfg.Passkey,
		CredentialStore: creds,
		PasswordStore:   passwords,
		TokenGenerator:  tokens,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("Failed to create passkey service", slog.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	handler := passkeyhttp.NewHandler(svc).WithLogger(logger)
	router.Route(cfg.Server.BasePath, func(r chi.Router) {
		passkeyhttp.MountChi(r, handler)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Sweep expired challenges in the background.
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweepChallenges(sweeperCtx, svc.Challenges(), logger)

	shutdownCtx := setupSignalHandler(logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("Passkey server started", "addr", server.Addr, "base_path", cfg.Server.BasePath)

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Error("Server error", slog.Any("error", err))
	}

	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.Error("Error during server shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Passkey server stopped")
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStores selects SQLite or in-memory storage based on configuration.
func openStores(cfg *config.Config) (passkey.CredentialStore, passkey.PasswordStore, func(), error) {
	if cfg.Storage.Path == "" {
		slog.Warn("No storage path configured, using in-memory stores")
		return passkey.NewMemoryCredentialStore(), passkey.NewMemoryPasswordStore(), func() {}, nil
	}

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("Error closing storage", slog.Any("error", err))
		}
	}
	return store, store.Passwords(), cleanup, nil
}

// sweepChallenges periodically removes expired challenges.
func sweepChallenges(ctx context.Context, store *passkey.ChallengeStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Cleanup(); removed > 0 {
				logger.Debug("Removed expired challenges", "count", removed)
			}
		}
	}
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}
