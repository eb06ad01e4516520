// Package backend builds the stores and provider adapters selected by the
// configuration. The api, poller and vidictl binaries share it.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"vidiai/internal/adapter/memory"
	"vidiai/internal/adapter/repo"
	"vidiai/internal/adapter/supabase"
	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/infra/credentials"
	"vidiai/internal/pricing"
	"vidiai/internal/providers"
	"vidiai/internal/providers/image"
	"vidiai/internal/providers/kie"
	"vidiai/internal/providers/music"
	"vidiai/internal/providers/video"
)

// Stores holds the history, ledger and stats backends of one process.
type Stores struct {
	History domain.HistoryStore
	Ledger  domain.BalanceLedger
	Stats   domain.StatsRepository
	// SQL is nil on the memory backend.
	SQL *infra.SQLRunner

	pool *pgxpool.Pool
}

// Open connects the configured backends. Close releases them.
func Open(ctx context.Context, cfg *infra.Config, table *pricing.Table, logger infra.Logger) (*Stores, error) {
	if table == nil {
		table = pricing.Default()
	}
	s := &Stores{}
	var (
		memLedger  *memory.Ledger
		memHistory *memory.History
	)

	switch cfg.StoreBackend {
	case infra.BackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.SQL = infra.NewSQLRunner(pool, logger)
		s.Ledger = repo.NewLedgerRepository(s.SQL, table.SignupCredits())
		s.Stats = repo.NewStatsRepository(s.SQL)
		s.History = repo.NewHistoryRepository(s.SQL)
	case infra.BackendMemory:
		memLedger = memory.NewLedger(table.SignupCredits())
		memHistory = memory.NewHistory()
		s.Ledger = memLedger
		s.History = memHistory
	default:
		return nil, fmt.Errorf("backend: store %q is not supported", cfg.StoreBackend)
	}

	if cfg.HistoryBackend == infra.BackendSupabase {
		history, err := supabase.NewHistory(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.History = history
		memHistory = nil
		logger.Info().Msg("backend: job history on supabase")
	}
	if memLedger != nil {
		s.Stats = memory.Stats{Ledger: memLedger, History: memHistory}
	}
	logger.Info().Str("store", cfg.StoreBackend).Str("history", cfg.HistoryBackend).Msg("backend: stores ready")
	return s, nil
}

// Credentials returns the provider key store, or nil without a database.
func (s *Stores) Credentials() *credentials.Store {
	if s.SQL == nil {
		return nil
	}
	return credentials.NewStore(s.SQL)
}

func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Adapters builds the kie.ai client and registers every adapter family on it.
// The API key comes from the configuration or, failing that, the credential
// store.
func Adapters(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) (*providers.Registry, error) {
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	key, err := credentials.ResolveKieAPIKey(ctx, cfg.KieAPIKey, creds)
	if err != nil {
		logger.Warn().Err(err).Msg("backend: failed to load kie api key from store")
	}
	client, err := kie.NewClient(kie.Options{
		APIKey:      key,
		BaseURL:     cfg.KieBaseURL,
		CallbackURL: cfg.KieCallbackURL,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: kie client: %w", err)
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("backend: kie api key missing, submissions will fail")
	}
	return providers.NewRegistry(
		video.NewTextAdapter(client),
		video.NewImageAdapter(client),
		video.NewReferenceAdapter(client),
		image.NewAdapter(client),
		music.NewAdapter(client, music.RandomCoin),
	), nil
}
