// Package main is the entry point for the wager bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/agent"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/bot"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/game"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/db"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/metrics"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/sealer"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/repository"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/service"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("transport", cfg.Bot.Transport).
		Str("store", cfg.Store.Backend).
		Str("resolution", cfg.Game.Resolution).
		Bool("nl_enabled", cfg.NLEnabled()).
		Msg("Configuration loaded successfully")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := metrics.Setup(ctx, &cfg.Metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up metrics")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush metrics")
		}
	}()
	instruments := metrics.Default()

	// Initialize key-value store
	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	// Initialize repositories
	wagerRepo := repository.NewWagerRepository(kv)
	walletRepo := repository.NewWalletRepository(kv)
	txRepo := repository.NewTransactionRepository(kv)

	// Initialize wallet gateway
	sl, err := sealer.New(cfg.Wallet.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create key sealer")
	}
	initial, err := decimal.NewFromString(cfg.Wallet.InitialBalance)
	if err != nil {
		log.Fatal().Err(err).Str("initial_balance", cfg.Wallet.InitialBalance).Msg("Invalid initial balance")
	}
	ledger := wallet.NewLedger(walletRepo, txRepo, sl, wallet.WithInitialBalance(initial))
	gateway := wallet.WithTimeout(ledger, cfg.Wallet.TransferTimeout)

	// Initialize wager engine
	registry := game.NewDefaultRegistry()
	resolver, err := registry.Get(cfg.Game.Resolution)
	if err != nil {
		log.Fatal().Err(err).Strs("available", registry.Names()).Msg("Unknown resolution policy")
	}
	engine := game.NewEngine(wagerRepo, gateway,
		game.WithResolver(resolver),
		game.WithPrecision(cfg.Game.PayoutPrecision),
		game.WithRefundOnCancel(cfg.Game.RefundOnCancel),
		game.WithMetrics(instruments),
	)

	// Initialize services
	accountService := service.NewAccountService(ledger, txRepo)
	transferService := service.NewTransferService(gateway)
	rankingService := service.NewRankingService(wagerRepo)

	handlerOpts := []handler.Option{
		handler.WithMetrics(instruments),
		handler.WithAdmins(cfg.IsAdmin),
		handler.WithExplorer(cfg.Wallet.ExplorerURL),
		handler.WithAsset(cfg.Wallet.Asset),
	}

	// Natural-language wager creation
	if cfg.NLEnabled() {
		sessions, err := agent.NewSessionCache(cfg.Agent.SessionCacheMax, cfg.Agent.HistoryLimit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create session cache")
		}
		defer sessions.Close()

		parser := agent.NewClaudeParser(agent.NewAnthropicClient(cfg.Agent.AnthropicAPIKey),
			agent.WithModel(cfg.Agent.Model),
			agent.WithMaxTokens(cfg.Agent.MaxTokens),
			agent.WithMaxTurns(cfg.Agent.MaxTurns),
			agent.WithTimeout(cfg.Agent.Timeout),
			agent.WithSessions(sessions),
		)
		handlerOpts = append(handlerOpts, handler.WithParser(parser))
		log.Info().Str("model", cfg.Agent.Model).Msg("Natural-language parser enabled")
	}

	wagerHandler := handler.NewWagerHandler(engine, accountService, transferService, rankingService, handlerOpts...)

	// Initialize transport
	transport, err := bot.New(cfg, wagerHandler)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	log.Info().Str("transport", transport.Name()).Msg("Bot is starting...")
	if err := transport.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
		return
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openStore opens the configured key-value backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil

	case "postgres":
		if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
			return nil, nil, err
		}
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(pool.Pool), pool.Close, nil

	default:
		fs, err := store.NewFileStore(afero.NewOsFs(), cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { _ = fs.Close() }, nil
	}
}
