package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/bot"
	"github.com/web3guy0/snipebot/config"
	"github.com/web3guy0/snipebot/core"
	"github.com/web3guy0/snipebot/executor"
	"github.com/web3guy0/snipebot/feeds"
	"github.com/web3guy0/snipebot/listener"
	"github.com/web3guy0/snipebot/portfolio"
	"github.com/web3guy0/snipebot/radar"
	"github.com/web3guy0/snipebot/signals"
	"github.com/web3guy0/snipebot/smartmoney"
	"github.com/web3guy0/snipebot/storage"
)

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("              SNIPEBOT - PREDICTION MARKET SNIPER")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Storage
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Database initialization failed")
	}
	store.SeedSettings(cfg.SettingsSeed())
	log.Info().Msg("✅ Storage layer initialized")

	// 2. Redis signal bus
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.RedisURL).Msg("Invalid Redis URL")
	}
	rdb := redis.NewClient(redisOpts)
	log.Info().Msg("✅ Signal bus initialized")

	// 3. Telegram notifier
	notifier := bot.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID)

	// 4. Publisher
	publisher := signals.New(rdb, store, notifier)
	log.Info().Msg("✅ Signal publisher initialized")

	// 5. Smart money
	scorer := smartmoney.NewScorer(rdb, store)
	tracker := smartmoney.NewTracker(scorer, publisher)
	log.Info().Msg("✅ Smart money tracker initialized")

	// 6. Portfolio + executor
	pf := portfolio.New(cfg.InitialCapital)
	exec := executor.New(pf, store, notifier, cfg.MaxTradesPerDay)

	// 7. Radar
	gamma := radar.NewClient(cfg.GammaBaseURL)
	rad := radar.New(gamma, publisher, store, cfg.ScanTTL, cfg.SearchLimit)
	log.Info().Msg("✅ Market radar initialized")

	// 8. Listener
	var posts listener.PostSource
	if cfg.PostSourceURL != "" {
		posts = listener.NewHTTPPostSource(cfg.PostSourceURL)
	} else {
		log.Warn().Msg("POST_SOURCE_URL not set, social posts disabled")
	}
	lst := listener.New(posts, listener.NewFeedSource(), rad, store, publisher, exec, listener.Options{
		Feeds:            cfg.NewsFeeds,
		PostsPerPoll:     cfg.PostsPerPoll,
		Interval:         cfg.ListenerInterval,
		RecoveryInterval: cfg.RecoveryInterval,
		RefreshEveryN:    cfg.RefreshEveryN,
	})
	lst.SetAlertSink(notifier)
	log.Info().Msg("✅ Social listener initialized")

	// 9. Order feed
	orderFeed := feeds.NewOrderFeed(os.Getenv("ORDERS_WS_URL"), tracker)

	// 10. Engine
	engine := core.NewEngine(rad, lst, orderFeed, tracker, store, pf, notifier, cfg.ScanTTL)
	log.Info().Msg("✅ Core engine initialized")

	// ═══════════════════════════════════════════════════════════════════════════════
	// START
	// ═══════════════════════════════════════════════════════════════════════════════

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	log.Info().Msg("🚀 All systems running...")

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("🛑 Shutting down...")
	engine.Stop()
	cancel()
	rdb.Close()
	store.Close()
	log.Info().Msg("👋 Goodbye!")
}
