package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rewired-gh/stockwatch/internal/api"
	"github.com/rewired-gh/stockwatch/internal/config"
	"github.com/rewired-gh/stockwatch/internal/identity"
	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/normalize"
	"github.com/rewired-gh/stockwatch/internal/session"
	"github.com/rewired-gh/stockwatch/internal/snapshot"
	"github.com/rewired-gh/stockwatch/internal/store"
	"github.com/rewired-gh/stockwatch/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Local .env overrides are optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	filter := normalize.NewSymbolFilter(cfg.Filter.ExcludedExchanges)
	fetcher := snapshot.New(
		cfg.Provider.BaseURL,
		&http.Client{Timeout: cfg.Provider.Timeout},
		filter,
		cfg.Snapshot.DefaultSymbols,
		snapshot.WithBatchSize(cfg.Snapshot.MaxBatchSize),
	)
	snapshots := store.New()

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
			cfg.Telegram.TopMovers,
			cfg.Telegram.MoversCooldown,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram alerts enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Per-symbol comment/vote sessions back the API's symbol endpoints, so
	// reads go through the merged realtime view rather than raw backend pages.
	var sessions *session.Manager
	if cfg.Comments.BaseURL != "" {
		sessions = session.NewManager(
			session.Config{
				CommentsBaseURL: cfg.Comments.BaseURL,
				StreamURL:       cfg.Comments.StreamURL,
				VotesBaseURL:    cfg.Votes.BaseURL,
				PageLimit:       cfg.Comments.PageLimit,
			},
			&http.Client{Timeout: cfg.Comments.Timeout},
			&http.Client{Timeout: cfg.Votes.Timeout},
			identity.Anonymous(),
		)
		defer sessions.Deactivate()
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.New(
			cfg.API.ListenAddr,
			cfg.API.AllowedOrigins,
			snapshots,
			sessions,
		)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("API server failed: %v", err)
			}
		}()
	}

	logger.Info("Starting watchlist service (poll: %v, symbols: %d, batch: %d)",
		cfg.Snapshot.PollInterval, len(cfg.Snapshot.Symbols), cfg.Snapshot.MaxBatchSize)

	ticker := time.NewTicker(cfg.Snapshot.PollInterval)
	defer ticker.Stop()

	runPollCycle(ctx, fetcher, snapshots, telegramClient, cfg)

	for {
		select {
		case <-ctx.Done():
			if apiServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := apiServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("API shutdown failed: %v", err)
				}
				shutdownCancel()
			}
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			runPollCycle(ctx, fetcher, snapshots, telegramClient, cfg)
		}
	}
}

func runPollCycle(
	ctx context.Context,
	fetcher *snapshot.Fetcher,
	snapshots *store.Store,
	telegramClient *telegram.Client,
	cfg *config.Config,
) {
	startTime := time.Now()

	result := fetcher.Fetch(ctx, cfg.Snapshot.Symbols)
	snapshots.SetSnapshot(result)

	switch {
	case result.Error502:
		logger.Warn("Data source down (502), showing outage state")
	case result.FromFallback:
		logger.Warn("Provider unavailable, showing %d fallback symbols", len(result.Items))
	default:
		logger.Info("Fetched %d symbols in %v (stale: %v)", len(result.Items), time.Since(startTime), result.FromStaleCache)
	}

	if telegramClient != nil {
		if err := telegramClient.ObserveSnapshot(result); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		}
	}
}
