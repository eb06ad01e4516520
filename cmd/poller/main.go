package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vidiai/internal/backend"
	"vidiai/internal/infra"
	"vidiai/internal/metrics"
	"vidiai/internal/poller"
	"vidiai/internal/pricing"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend == infra.BackendMemory && cfg.HistoryBackend == infra.BackendMemory {
		logger.Warn().Msg("poller: memory backend has no shared jobs, the api process polls them itself")
	}

	table := pricing.Default()
	if cfg.CatalogPath != "" {
		if table, err = pricing.Load(cfg.CatalogPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("poller: failed to load catalog")
		}
	}

	stores, err := backend.Open(ctx, cfg, table, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: failed to open stores")
	}
	defer stores.Close()

	registry, err := backend.Adapters(ctx, cfg, stores.Credentials(), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: failed to configure providers")
	}

	policy, err := poller.ParseRefundPolicy(cfg.RefundPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: invalid refund policy")
	}
	p, err := poller.New(poller.Options{
		Adapters:     registry,
		History:      stores.History,
		Ledger:       stores.Ledger,
		Policy:       policy,
		Interval:     cfg.PollInterval,
		CheckTimeout: cfg.PollCheckTimeout,
		Concurrency:  cfg.PollConcurrency,
		Logger:       &logger,
		Metrics:      metrics.New(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: failed to configure")
	}

	if err := p.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("poller: stopped with error")
	}
}
