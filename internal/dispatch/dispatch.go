// Package dispatch turns a generation request into a persisted job: it prices
// the request, checks and reserves credits, routes to an adapter and records
// the result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/metrics"
	"vidiai/internal/pricing"
	"vidiai/internal/providers"
)

// AdapterSource resolves a provider family to its adapter.
type AdapterSource interface {
	Get(p domain.Provider) (providers.Adapter, error)
}

// Options wires the dispatcher.
type Options struct {
	Adapters AdapterSource
	Pricing  *pricing.Table
	Ledger   domain.BalanceLedger
	History  domain.HistoryStore
	// StrictRoutes makes unmatched requests fail with ErrNoRoute instead of
	// falling back to the per-kind default.
	StrictRoutes bool
	Logger       *infra.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
	NewID        func() string
	// ReleaseBackoff is the first wait between attempts to release a
	// reservation after a failed submit. It doubles per attempt.
	ReleaseBackoff time.Duration
}

const (
	releaseAttempts       = 5
	defaultReleaseBackoff = 200 * time.Millisecond
)

// Submission is one owner's request.
type Submission struct {
	OwnerID string
	Country string
	Request domain.GenerationRequest
}

// Dispatcher is safe for concurrent use. It holds no per-request state.
type Dispatcher struct {
	adapters AdapterSource
	pricing  *pricing.Table
	ledger   domain.BalanceLedger
	history  domain.HistoryStore
	strict   bool
	logger   *infra.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
	backoff  time.Duration
}

// New validates opts and fills defaults.
func New(opts Options) (*Dispatcher, error) {
	if opts.Adapters == nil || opts.Ledger == nil || opts.History == nil {
		return nil, errors.New("dispatch: adapters, ledger and history are required")
	}
	table := opts.Pricing
	if table == nil {
		table = pricing.Default()
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	backoff := opts.ReleaseBackoff
	if backoff <= 0 {
		backoff = defaultReleaseBackoff
	}
	return &Dispatcher{
		adapters: opts.Adapters,
		pricing:  table,
		ledger:   opts.Ledger,
		history:  opts.History,
		strict:   opts.StrictRoutes,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
		newID:    newID,
		backoff:  backoff,
	}, nil
}

// Quote returns the cost of req without touching the ledger.
func (d *Dispatcher) Quote(req domain.GenerationRequest) (int, error) {
	norm, err := Normalize(req)
	if err != nil {
		return 0, err
	}
	return d.pricing.Cost(pricing.FingerprintOf(norm)), nil
}

// Submit prices, routes and submits one request. Credits are reserved right
// before the provider call and released if that call fails.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) (*domain.Job, error) {
	if sub.OwnerID == "" {
		return nil, fmt.Errorf("dispatch: %w", domain.ErrUnauthorized)
	}
	req, err := Normalize(sub.Request)
	if err != nil {
		d.metrics.ObserveSubmit("", "validation", 0)
		return nil, err
	}

	cost := d.pricing.Cost(pricing.FingerprintOf(req))
	balance, err := d.ledger.Balance(ctx, sub.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: balance: %w", err)
	}
	if balance < cost {
		d.metrics.ObserveSubmit("", "insufficient_credits", 0)
		return nil, fmt.Errorf("dispatch: balance %d below cost %d: %w", balance, cost, domain.ErrInsufficientCredits)
	}

	provider, err := d.route(req)
	if err != nil {
		d.metrics.ObserveSubmit("", "no_route", 0)
		return nil, err
	}
	adapter, err := d.adapters.Get(provider)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if err := adapter.Validate(req); err != nil {
		d.metrics.ObserveSubmit(string(provider), "validation", 0)
		return nil, err
	}

	jobID := d.newID()
	if _, err := d.ledger.Debit(ctx, sub.OwnerID, cost, domain.ReasonGeneration); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			d.metrics.ObserveSubmit(string(provider), "insufficient_credits", 0)
		}
		return nil, fmt.Errorf("dispatch: reserve %d credits: %w", cost, err)
	}

	started := d.now()
	externalID, err := adapter.Submit(ctx, req)
	elapsed := d.now().Sub(started)
	if err != nil {
		d.release(sub.OwnerID, jobID, cost, provider, err)
		d.metrics.ObserveSubmit(string(provider), outcome(err), elapsed)
		return nil, fmt.Errorf("dispatch: submit to %s: %w", provider, err)
	}
	d.metrics.ObserveSubmit(string(provider), "ok", elapsed)
	d.metrics.Debited(string(req.Kind), cost)

	job := d.newJob(jobID, sub, req, domain.JobRef{Provider: provider, ExternalID: externalID}, cost)
	if err := d.history.Record(ctx, job); err != nil {
		// The upstream job exists and the credits are spent; the caller still
		// gets the job so the result is not lost from view.
		d.logger.Error().Err(err).Str("job_id", job.ID).Str("ref", job.Ref.String()).Msg("dispatch: record job failed")
	}
	d.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", sub.OwnerID).
		Str("provider", string(provider)).
		Str("external_id", externalID).
		Int("cost", cost).
		Msg("dispatch: job submitted")
	return job, nil
}

// SubmitTemplate animates mediaURL with a showcase template.
func (d *Dispatcher) SubmitTemplate(ctx context.Context, ownerID, country, templateID, mediaURL string) (*domain.Job, error) {
	tpl, ok := d.pricing.Template(templateID)
	if !ok {
		return nil, fmt.Errorf("dispatch: template %q: %w", templateID, domain.ErrNotFound)
	}
	duration := 5
	if tpl.Duration > 5 {
		duration = 10
	}
	req := domain.GenerationRequest{
		Kind:        domain.KindVideo,
		ModelID:     domain.ModelImageToVideo,
		Prompt:      tpl.Prompt,
		MediaInputs: []string{mediaURL},
		Options:     domain.Options{Method: domain.MethodAnimate, Duration: duration},
		TemplateID:  tpl.ID,
		Title:       tpl.Title,
	}
	return d.Submit(ctx, Submission{OwnerID: ownerID, Country: country, Request: req})
}

func (d *Dispatcher) route(req domain.GenerationRequest) (domain.Provider, error) {
	if p, ok := Resolve(req); ok {
		return p, nil
	}
	key := fmt.Sprintf("%s/%s/%s media=%d", req.Kind, req.ModelID, req.Options.Method, len(req.MediaInputs))
	if d.strict {
		return "", fmt.Errorf("dispatch: %s: %w", key, domain.ErrNoRoute)
	}
	p := fallbackRoutes[req.Kind]
	d.logger.Warn().Str("route", key).Str("provider", string(p)).Msg("dispatch: no route matched, using default")
	return p, nil
}

// ReleaseKey is the ledger key that returns the reservation made for jobID.
func ReleaseKey(jobID string) string { return "reserve:" + jobID }

// release returns a reservation, retrying with backoff. The ledger refund is
// keyed by the reserved job id, so an attempt that landed but reported an
// error is not paid twice.
func (d *Dispatcher) release(ownerID, jobID string, cost int, provider domain.Provider, cause error) {
	// The caller's context may already be cancelled; the refund must land.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := ReleaseKey(jobID)
	wait := d.backoff
	var err error
retry:
	for attempt := 1; attempt <= releaseAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break retry
			case <-time.After(wait):
				wait *= 2
			}
		}
		var applied bool
		if _, applied, err = d.ledger.Refund(ctx, ownerID, cost, key); err == nil {
			if applied {
				d.metrics.Refunded(cost)
			}
			d.logger.Warn().Err(cause).Str("owner_id", ownerID).Str("provider", string(provider)).Int("cost", cost).Msg("dispatch: submit failed, credits released")
			return
		}
		d.logger.Warn().Err(err).Str("key", key).Int("attempt", attempt).Msg("dispatch: release reservation failed")
	}
	d.logger.Error().Err(err).Str("owner_id", ownerID).Str("key", key).Int("cost", cost).Msg("dispatch: release reservation gave up")
}

func (d *Dispatcher) newJob(id string, sub Submission, req domain.GenerationRequest, ref domain.JobRef, cost int) *domain.Job {
	now := d.now().UTC()
	job := &domain.Job{
		ID:          id,
		Ref:         ref,
		OwnerID:     sub.OwnerID,
		Kind:        req.Kind,
		ModelID:     req.ModelID,
		Prompt:      req.Prompt,
		Title:       req.Title,
		MediaInputs: req.MediaInputs,
		AspectRatio: req.Options.AspectRatio,
		Duration:    req.Options.Duration,
		Country:     sub.Country,
		Status:      domain.JobStatusProcessing,
		CostCharged: cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(req.MediaInputs) > 0 {
		job.SourceMediaURL = req.MediaInputs[0]
	}
	return job
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderOutOfCredits):
		return "provider_out_of_credits"
	case errors.Is(err, domain.ErrTransientNetwork):
		return "transient"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	}
	return "provider_failure"
}
