package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickfu415/landing-control/internal/api"
	"github.com/rickfu415/landing-control/internal/auth"
	"github.com/rickfu415/landing-control/internal/config"
	"github.com/rickfu415/landing-control/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	registry := session.NewRegistry(cfg.MaxSessions)

	srv := api.NewServer(api.Config{
		Addr: cfg.HTTPAddr,
		Auth: auth.Config{
			Enabled: cfg.AuthEnabled,
			Token:   cfg.AuthToken,
		},
		TrustProxy:      cfg.TrustProxy,
		MaxStreamsPerIP: cfg.MaxStreamsPerIP,
		Defaults: api.SessionDefaults{
			Preset:        cfg.DefaultPreset,
			StartAltitude: cfg.StartAltitude,
			TickInterval:  time.Duration(cfg.TickMillis) * time.Millisecond,
			TimeStep:      cfg.TimeStep,
			WindLevel:     cfg.WindLevel,
			WindSeed:      cfg.WindSeed,
			SimpleAero:    cfg.SimpleAero,
		},
	}, registry, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"auth_enabled", cfg.AuthEnabled,
			"default_preset", cfg.DefaultPreset,
			"max_sessions", cfg.MaxSessions,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	registry.CloseAll()

	logger.Info("server stopped")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
