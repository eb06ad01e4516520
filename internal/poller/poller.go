// Package poller advances processing jobs to their terminal state by asking
// the owning adapter for status.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/metrics"
	"vidiai/internal/providers"
)

// RefundPolicy decides what happens to the credits of a failed job.
type RefundPolicy string

const (
	// RefundNone keeps the credits charged at submission.
	RefundNone RefundPolicy = "none"
	// RefundOnFailure credits CostCharged back once the job fails.
	RefundOnFailure RefundPolicy = "refund"
)

// ParseRefundPolicy maps a config value to a policy.
func ParseRefundPolicy(v string) (RefundPolicy, error) {
	switch RefundPolicy(v) {
	case "", RefundNone:
		return RefundNone, nil
	case RefundOnFailure:
		return RefundOnFailure, nil
	}
	return "", fmt.Errorf("poller: unknown refund policy %q", v)
}

const (
	defaultInterval     = 5 * time.Second
	defaultCheckTimeout = 15 * time.Second
	defaultConcurrency  = 8
	defaultBatchSize    = 200
)

// AdapterSource resolves a provider family to its adapter.
type AdapterSource interface {
	Get(p domain.Provider) (providers.Adapter, error)
}

// Options wires the poller. Zero durations and limits take defaults.
type Options struct {
	Adapters     AdapterSource
	History      domain.HistoryStore
	Ledger       domain.BalanceLedger
	Policy       RefundPolicy
	Interval     time.Duration
	CheckTimeout time.Duration
	Concurrency  int
	BatchSize    int
	// BreakerTimeout is how long an open breaker waits before half-opening.
	BreakerTimeout time.Duration
	Logger         *infra.Logger
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Poller checks jobs. Check and Refresh are safe for concurrent use.
type Poller struct {
	adapters       AdapterSource
	history        domain.HistoryStore
	ledger         domain.BalanceLedger
	policy         RefundPolicy
	interval       time.Duration
	checkTimeout   time.Duration
	concurrency    int
	batchSize      int
	breakerTimeout time.Duration
	logger         *infra.Logger
	metrics        *metrics.Metrics
	now            func() time.Time

	mu       sync.Mutex
	breakers map[domain.Provider]*gobreaker.CircuitBreaker[domain.StatusResult]
}

// New validates opts and fills defaults.
func New(opts Options) (*Poller, error) {
	if opts.Adapters == nil || opts.History == nil {
		return nil, errors.New("poller: adapters and history are required")
	}
	if opts.Policy == "" {
		opts.Policy = RefundNone
	}
	if opts.Policy == RefundOnFailure && opts.Ledger == nil {
		return nil, errors.New("poller: refund policy needs a ledger")
	}
	p := &Poller{
		adapters:       opts.Adapters,
		history:        opts.History,
		ledger:         opts.Ledger,
		policy:         opts.Policy,
		interval:       orDuration(opts.Interval, defaultInterval),
		checkTimeout:   orDuration(opts.CheckTimeout, defaultCheckTimeout),
		concurrency:    orInt(opts.Concurrency, defaultConcurrency),
		batchSize:      orInt(opts.BatchSize, defaultBatchSize),
		breakerTimeout: orDuration(opts.BreakerTimeout, 30*time.Second),
		metrics:        opts.Metrics,
		now:            opts.Now,
		breakers:       make(map[domain.Provider]*gobreaker.CircuitBreaker[domain.StatusResult]),
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.logger = opts.Logger
	if p.logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		p.logger = &l
	}
	return p, nil
}

// Check asks the owning adapter for the status of job and persists a terminal
// result. Terminal jobs are returned as they are. On any lookup error the job
// comes back unchanged with an error wrapping domain.ErrTransientNetwork.
func (p *Poller) Check(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job == nil {
		return nil, fmt.Errorf("poller: %w", domain.ErrNotFound)
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	provider := job.Ref.Provider
	adapter, err := p.adapters.Get(provider)
	if err != nil {
		return job, fmt.Errorf("poller: job %s: %w", job.ID, err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()
	res, err := p.breaker(provider).Execute(func() (domain.StatusResult, error) {
		return adapter.Status(cctx, job.Ref.ExternalID)
	})
	if err != nil {
		p.metrics.ObserveCheck(string(provider), "transient")
		if !errors.Is(err, domain.ErrTransientNetwork) {
			err = fmt.Errorf("%w: %w", domain.ErrTransientNetwork, err)
		}
		return job, fmt.Errorf("poller: job %s: %w", job.ID, err)
	}
	if !res.Status.IsTerminal() {
		p.metrics.ObserveCheck(string(provider), "processing")
		return job, nil
	}
	p.metrics.ObserveCheck(string(provider), string(res.Status))

	applied, err := p.history.Update(ctx, job.ID, res)
	if err != nil {
		return job, fmt.Errorf("poller: update job %s: %w", job.ID, err)
	}
	if !applied {
		// Another checker won the race; return what it stored.
		stored, err := p.history.Get(ctx, job.ID)
		if err != nil {
			return job, fmt.Errorf("poller: reload job %s: %w", job.ID, err)
		}
		return stored, nil
	}

	updated := *job
	updated.Apply(res, p.now().UTC())
	p.metrics.Transition(string(provider), string(res.Status))
	p.logger.Info().
		Str("job_id", job.ID).
		Str("ref", job.Ref.String()).
		Str("status", string(res.Status)).
		Msg("poller: job finished")

	if res.Status == domain.JobStatusFailed {
		if err := p.refund(ctx, &updated); err != nil {
			// The next Tick retries through the unrefunded sweep.
			p.logger.Error().Err(err).Str("job_id", job.ID).Int("cost", job.CostCharged).Msg("poller: refund failed")
		}
	}
	return &updated, nil
}

// Refresh checks every non-terminal job of ownerID and returns all of the
// owner's jobs newest first. Lookup errors are logged and the affected jobs
// are returned as stored.
func (p *Poller) Refresh(ctx context.Context, ownerID string) ([]domain.Job, error) {
	jobs, err := p.history.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("poller: list %s: %w", ownerID, err)
	}
	p.checkAll(ctx, jobs)
	return jobs, nil
}

// Run polls every pending job on a fixed interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.logger.Info().Dur("interval", p.interval).Str("refund_policy", string(p.policy)).Msg("poller: started")
	for {
		if err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error().Err(err).Msg("poller: tick failed")
		}
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller: stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one pass over the pending jobs of every owner. Under the refund
// policy it also settles failed jobs whose refund did not land yet.
func (p *Poller) Tick(ctx context.Context) error {
	timer := p.metrics.TickTimer()
	defer timer.ObserveDuration()

	jobs, err := p.history.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("poller: list pending: %w", err)
	}
	p.checkAll(ctx, jobs)
	return p.settleRefunds(ctx)
}

func (p *Poller) settleRefunds(ctx context.Context) error {
	if p.policy != RefundOnFailure {
		return nil
	}
	jobs, err := p.history.ListUnrefunded(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("poller: list unrefunded: %w", err)
	}
	var failed int
	for i := range jobs {
		if err := p.refund(ctx, &jobs[i]); err != nil {
			failed++
			p.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("poller: refund retry failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("poller: %d of %d refunds still pending", failed, len(jobs))
	}
	return nil
}

func (p *Poller) checkAll(ctx context.Context, jobs []domain.Job) {
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range jobs {
		if jobs[i].Status.IsTerminal() {
			continue
		}
		g.Go(func() error {
			updated, err := p.Check(ctx, &jobs[i])
			if err != nil {
				p.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("poller: status check failed")
				return nil
			}
			jobs[i] = *updated
			return nil
		})
	}
	_ = g.Wait()
}

// RefundKey is the ledger key of the refund for a failed job.
func RefundKey(jobID string) string { return "job:" + jobID }

// refund credits a failed job back and flags it. The ledger refund is keyed
// by job id, so retrying after a failed MarkRefunded never pays twice.
func (p *Poller) refund(ctx context.Context, job *domain.Job) error {
	if p.policy != RefundOnFailure || job.CostCharged <= 0 || job.Refunded {
		return nil
	}
	_, applied, err := p.ledger.Refund(ctx, job.OwnerID, job.CostCharged, RefundKey(job.ID))
	if err != nil {
		return fmt.Errorf("credit %d to %s: %w", job.CostCharged, job.OwnerID, err)
	}
	if err := p.history.MarkRefunded(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job %s refunded: %w", job.ID, err)
	}
	job.Refunded = true
	if applied {
		p.metrics.Refunded(job.CostCharged)
		p.logger.Info().Str("job_id", job.ID).Str("owner_id", job.OwnerID).Int("credits", job.CostCharged).Msg("poller: failed job refunded")
	}
	return nil
}

func (p *Poller) breaker(provider domain.Provider) *gobreaker.CircuitBreaker[domain.StatusResult] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[provider]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[domain.StatusResult](gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     p.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.metrics.SetBreakerState(name, int(to))
			p.logger.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("poller: breaker state changed")
		},
	})
	p.breakers[provider] = cb
	return cb
}

// BreakerState reports the breaker state of provider.
func (p *Poller) BreakerState(provider domain.Provider) gobreaker.State {
	return p.breaker(provider).State()
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
