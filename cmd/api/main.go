package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vidiai/internal/backend"
	"vidiai/internal/dispatch"
	"vidiai/internal/guard"
	"vidiai/internal/http/handlers"
	httpapi "vidiai/internal/http/httpapi"
	"vidiai/internal/infra"
	"vidiai/internal/infra/geoip"
	"vidiai/internal/metrics"
	"vidiai/internal/middleware"
	"vidiai/internal/poller"
	"vidiai/internal/pricing"
	"vidiai/internal/storage"
)

const initDataMaxAge = 24 * time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := pricing.Default()
	if cfg.CatalogPath != "" {
		if table, err = pricing.Load(cfg.CatalogPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("api: failed to load catalog")
		}
	}

	stores, err := backend.Open(ctx, cfg, table, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to open stores")
	}
	defer stores.Close()

	registry, err := backend.Adapters(ctx, cfg, stores.Credentials(), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure providers")
	}

	m := metrics.New()
	// A request the routing table misses is a client bug, so development fails it loudly.
	dispatcher, err := dispatch.New(dispatch.Options{
		Adapters:     registry,
		Pricing:      table,
		Ledger:       stores.Ledger,
		History:      stores.History,
		StrictRoutes: cfg.IsDevelopment(),
		Logger:       &logger,
		Metrics:      m,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure dispatcher")
	}

	policy, err := poller.ParseRefundPolicy(cfg.RefundPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: invalid refund policy")
	}
	checker, err := poller.New(poller.Options{
		Adapters:     registry,
		History:      stores.History,
		Ledger:       stores.Ledger,
		Policy:       policy,
		Interval:     cfg.PollInterval,
		CheckTimeout: cfg.PollCheckTimeout,
		Concurrency:  cfg.PollConcurrency,
		Logger:       &logger,
		Metrics:      m,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure poller")
	}
	// The memory store lives in this process only, so nobody else can poll it.
	if cfg.StoreBackend == infra.BackendMemory && cfg.HistoryBackend == infra.BackendMemory {
		go func() { _ = checker.Run(ctx) }()
	}

	var submitGuard guard.Guard = guard.NewMemory(cfg.SubmitGuardTTL)
	redisClient, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("api: redis unavailable, submit guard is per process")
	} else if redisClient != nil {
		defer redisClient.Close()
		submitGuard = guard.NewRedis(redisClient, cfg.SubmitGuardTTL)
	}

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure blob store")
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if fn := resolver.Lookup(); fn != nil {
		lookup = fn
	}

	app := &handlers.App{
		Jobs:           dispatcher,
		Checker:        checker,
		History:        stores.History,
		Ledger:         stores.Ledger,
		Stats:          stores.Stats,
		Pricing:        table,
		Blobs:          blobs,
		Guard:          submitGuard,
		Logger:         &logger,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		VerifyInitData: handlers.TelegramInitData(cfg.TelegramToken, initDataMaxAge),
		UploadMaxBytes: cfg.UploadMaxBytes,
	}

	opts := httpapi.Options{
		Logger:          logger,
		Metrics:         m,
		CountryLookup:   lookup,
		CORSOrigins:     cfg.CORSOrigins,
		AdminToken:      cfg.AdminToken,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}
	if cfg.BlobBackend == infra.BlobFilesystem {
		opts.StaticDir = cfg.StoragePath
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, opts))

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("store", cfg.StoreBackend).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
