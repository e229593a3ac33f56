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

	"github.com/anonto42/nano-midea/campus/internal/events"
	"github.com/anonto42/nano-midea/campus/internal/router"
	"github.com/anonto42/nano-midea/campus/pkg/config"
	"github.com/anonto42/nano-midea/campus/pkg/firebase"
	"github.com/anonto42/nano-midea/campus/validators"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
)

func main() {
	cfg := config.Load()
	initLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize databases", "error", err)
		os.Exit(1)
	}
	defer db.CloseDB()

	if err := router.Migrate(db.Postgres); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	var verifier firebase.Verifier
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			slog.Error("failed to initialize Firebase", "error", err)
			os.Exit(1)
		}
		verifier = app.AuthClient
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("campus-api"))
		if err != nil {
			slog.Error("failed to connect to NATS", "url", cfg.NatsURL, "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		publisher = events.NewNatsPublisher(nc)
		slog.Info("publishing events to NATS", "url", cfg.NatsURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)
	router.SetupRoutes(e, router.Deps{
		Config:    cfg,
		Postgres:  db.Postgres,
		Mongo:     db.Mongo,
		Verifier:  verifier,
		Publisher: publisher,
	})

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	slog.Info("signal received, shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" || cfg.Env == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
