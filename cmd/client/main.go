package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/feed"
	"github.com/anonto42/nano-midea/campus/internal/gateway"
	"github.com/anonto42/nano-midea/campus/internal/store"
	"github.com/anonto42/nano-midea/campus/internal/tui"
	"github.com/anonto42/nano-midea/campus/pkg/config"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", os.Getenv("CAMPUS_CONFIG"), "path to the client YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "campus:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := initLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	gwCfg := gateway.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}
	var tokens gateway.TokenSource
	if cfg.Auth.Token != "" {
		tokens = gateway.NewStaticToken(cfg.Auth.Token)
	} else {
		signer, err := gateway.New(gwCfg, nil, gateway.WithLogger(logger))
		if err != nil {
			return err
		}
		tokens = gateway.NewPasswordLogin(signer, cfg.Auth.Email, cfg.Auth.Password)
	}
	client, err := gateway.New(gwCfg, tokens, gateway.WithLogger(logger))
	if err != nil {
		return err
	}

	bookmarkStore, closeStore, err := openBookmarkStore(cfg.Bookmarks, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	f := feed.New(client,
		feed.WithLogger(logger),
		feed.WithCommentLiker(client),
		feed.WithBookmarks(store.NewBookmarks(bookmarkStore, cfg.Bookmarks.User)),
	)
	defer f.Close()

	return tui.Run(tui.Options{Feed: f, Logger: logger})
}

// openBookmarkStore connects to Redis when an address is configured and falls
// back to an in-memory store otherwise.
func openBookmarkStore(cfg config.BookmarksConfig, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("bookmarks kept in memory")
		return store.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("bookmarks kept in redis", "addr", cfg.RedisAddr)
	return store.NewRedisStore(rdb, store.DefaultRedisPrefix, cfg.TTL), func() { _ = rdb.Close() }, nil
}

// initLogger writes JSON logs to the configured file. The terminal belongs to
// the UI, so without a file logs are discarded.
func initLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = io.Discard
	closeFn := func() {}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = file
		closeFn = func() { _ = file.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
