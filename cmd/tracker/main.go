package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"reel_tracker/internal/bot"
	"reel_tracker/internal/config"
	"reel_tracker/internal/poller"
	"reel_tracker/internal/provider"
	"reel_tracker/internal/scheduler"
	"reel_tracker/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if !storage.IsPostgresURL(cfg.DatabaseURL) {
		if dir := filepath.Dir(cfg.DatabaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "url", cfg.DatabaseURL, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	fetcher := poller.NewFetcher(cfg.RetryCount, buildProviders(cfg)...)
	p := poller.New(store, fetcher, cfg.BatchSize, cfg.MaxConcurrent, log)

	b, err := bot.New(cfg.TelegramBotToken, store, p, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting tracker", "providers", strings.Join(cfg.Providers, ","), "scheduler", cfg.EnableScheduler)

	if cfg.EnableScheduler {
		sched := scheduler.New(p, cfg.DailyRunHour, log)
		go sched.Run(ctx)
	}

	b.Run(ctx)

	log.Info("tracker stopped")
}

// buildProviders assembles the provider tier list from config. Actor runs
// can take a while, so the apify client gets a much longer timeout than
// the direct page client.
func buildProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "apify":
			client := &http.Client{Timeout: 120 * time.Second}
			providers = append(providers, provider.NewApify(client, cfg.ApifyToken, cfg.ApifyActorID))
		case "instagram":
			client := &http.Client{Timeout: 30 * time.Second}
			providers = append(providers, provider.NewInstagram(client))
		}
	}
	return providers
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
