package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"vidiai/internal/backend"
	"vidiai/internal/cli"
	"vidiai/internal/db"
	"vidiai/internal/infra"
	"vidiai/internal/pricing"
)

func main() {
	_ = godotenv.Load()

	if err := cli.BuildCLI(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vidictl:", err)
		os.Exit(1)
	}
}

func open(ctx context.Context) (*cli.Deps, func(), error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "vidictl").Logger()

	table := pricing.Default()
	if cfg.CatalogPath != "" {
		if table, err = pricing.Load(cfg.CatalogPath); err != nil {
			return nil, nil, err
		}
	}
	stores, err := backend.Open(ctx, cfg, table, logger)
	if err != nil {
		return nil, nil, err
	}
	deps := &cli.Deps{Ledger: stores.Ledger, History: stores.History}
	if creds := stores.Credentials(); creds != nil {
		deps.Credentials = creds
	}
	if cfg.StoreBackend == infra.BackendPostgres {
		deps.Migrate = func(ctx context.Context) ([]string, error) {
			conn, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			return db.Migrate(ctx, conn, logger)
		}
	}
	return deps, stores.Close, nil
}
