// Package supabase stores job history in a Supabase project through its
// PostgREST endpoint. It backs HISTORY_BACKEND=supabase.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"vidiai/internal/domain"
)

const table = "generation_jobs"

// History implements domain.HistoryStore on the generation_jobs table.
type History struct {
	client *supa.Client
	now    func() time.Time
}

// NewHistory connects to the project at url with the service role key.
func NewHistory(url, serviceKey string) (*History, error) {
	client, err := supa.NewClient(url, serviceKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase: client: %w", err)
	}
	return &History{client: client, now: time.Now}, nil
}

// jobRecord is the row shape PostgREST reads and writes.
type jobRecord struct {
	ID                 string     `json:"id"`
	Provider           string     `json:"provider"`
	ExternalID         string     `json:"external_id"`
	OwnerID            string     `json:"owner_id"`
	Kind               string     `json:"kind"`
	ModelID            string     `json:"model_id"`
	Prompt             string     `json:"prompt"`
	Title              string     `json:"title"`
	SourceMediaURL     string     `json:"source_media_url"`
	MediaInputs        []string   `json:"media_inputs"`
	AspectRatio        string     `json:"aspect_ratio"`
	Duration           int        `json:"duration"`
	Country            string     `json:"country"`
	Status             string     `json:"status"`
	ResultURL          string     `json:"result_url"`
	AlternateResultURL string     `json:"alternate_result_url"`
	ErrorDescription   string     `json:"error_description"`
	CostCharged        int        `json:"cost_charged"`
	Refunded           bool       `json:"refunded"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at"`
}

func toRecord(job *domain.Job) jobRecord {
	media := job.MediaInputs
	if media == nil {
		media = []string{}
	}
	return jobRecord{
		ID:                 job.ID,
		Provider:           string(job.Ref.Provider),
		ExternalID:         job.Ref.ExternalID,
		OwnerID:            job.OwnerID,
		Kind:               string(job.Kind),
		ModelID:            job.ModelID,
		Prompt:             job.Prompt,
		Title:              job.Title,
		SourceMediaURL:     job.SourceMediaURL,
		MediaInputs:        media,
		AspectRatio:        job.AspectRatio,
		Duration:           job.Duration,
		Country:            job.Country,
		Status:             string(job.Status),
		ResultURL:          job.ResultURL,
		AlternateResultURL: job.AlternateResultURL,
		ErrorDescription:   job.ErrorDescription,
		CostCharged:        job.CostCharged,
		Refunded:           job.Refunded,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
		CompletedAt:        job.CompletedAt,
	}
}

func (r jobRecord) job() (domain.Job, error) {
	ref, err := domain.ParseJobRef(r.Provider, r.ExternalID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("supabase: job %s: %w", r.ID, err)
	}
	return domain.Job{
		ID:                 r.ID,
		Ref:                ref,
		OwnerID:            r.OwnerID,
		Kind:               domain.ContentKind(r.Kind),
		ModelID:            r.ModelID,
		Prompt:             r.Prompt,
		Title:              r.Title,
		SourceMediaURL:     r.SourceMediaURL,
		MediaInputs:        r.MediaInputs,
		AspectRatio:        r.AspectRatio,
		Duration:           r.Duration,
		Country:            r.Country,
		Status:             domain.JobStatus(r.Status),
		ResultURL:          r.ResultURL,
		AlternateResultURL: r.AlternateResultURL,
		ErrorDescription:   r.ErrorDescription,
		CostCharged:        r.CostCharged,
		Refunded:           r.Refunded,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CompletedAt:        r.CompletedAt,
	}, nil
}

func decode(data []byte) ([]jobRecord, error) {
	var rows []jobRecord
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode rows: %w", err)
	}
	return rows, nil
}

func (h *History) Record(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("supabase: record: %w", domain.ErrValidation)
	}
	rec := toRecord(job)
	now := h.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	if _, _, err := h.client.From(table).Insert(rec, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("supabase: record job %s: %w", job.ID, err)
	}
	return nil
}

// Update patches only rows still in processing, so a terminal job is never
// rewritten.
func (h *History) Update(ctx context.Context, jobID string, res domain.StatusResult) (bool, error) {
	if !res.Status.IsTerminal() {
		return false, nil
	}
	now := h.now().UTC()
	patch := map[string]any{
		"status":       string(res.Status),
		"updated_at":   now,
		"completed_at": now,
	}
	switch res.Status {
	case domain.JobStatusSucceeded:
		patch["result_url"] = res.ResultURL
		patch["alternate_result_url"] = res.AlternateResultURL
	case domain.JobStatusFailed:
		msg := res.ErrorDescription
		if msg == "" {
			msg = domain.GenericFailureMessage
		}
		patch["error_description"] = msg
	}
	data, _, err := h.client.From(table).
		Update(patch, "representation", "").
		Eq("id", jobID).
		Eq("status", string(domain.JobStatusProcessing)).
		Execute()
	if err != nil {
		return false, fmt.Errorf("supabase: update job %s: %w", jobID, err)
	}
	rows, err := decode(data)
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		return true, nil
	}
	if _, err := h.Get(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

func (h *History) MarkRefunded(ctx context.Context, jobID string) error {
	data, _, err := h.client.From(table).
		Update(map[string]any{"refunded": true, "updated_at": h.now().UTC()}, "representation", "").
		Eq("id", jobID).
		Execute()
	if err != nil {
		return fmt.Errorf("supabase: mark refunded %s: %w", jobID, err)
	}
	rows, err := decode(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (h *History) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	data, _, err := h.client.From(table).
		Select("*", "", false).
		Eq("id", jobID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase: get job %s: %w", jobID, err)
	}
	rows, err := decode(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	job, err := rows[0].job()
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (h *History) List(ctx context.Context, ownerID string) ([]domain.Job, error) {
	data, _, err := h.client.From(table).
		Select("*", "", false).
		Eq("owner_id", ownerID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase: list jobs: %w", err)
	}
	return jobs(data)
}

func (h *History) ListPending(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	data, _, err := h.client.From(table).
		Select("*", "", false).
		Eq("status", string(domain.JobStatusProcessing)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase: list pending jobs: %w", err)
	}
	return jobs(data)
}

func (h *History) ListUnrefunded(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	data, _, err := h.client.From(table).
		Select("*", "", false).
		Eq("status", string(domain.JobStatusFailed)).
		Eq("refunded", "false").
		Gt("cost_charged", "0").
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase: list unrefunded jobs: %w", err)
	}
	return jobs(data)
}

func (h *History) Delete(ctx context.Context, jobID, ownerID string) error {
	job, err := h.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.OwnerID != ownerID {
		return domain.ErrForbidden
	}
	data, _, err := h.client.From(table).
		Delete("representation", "").
		Eq("id", jobID).
		Eq("owner_id", ownerID).
		Execute()
	if err != nil {
		return fmt.Errorf("supabase: delete job %s: %w", jobID, err)
	}
	rows, err := decode(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func jobs(data []byte) ([]domain.Job, error) {
	rows, err := decode(data)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Job, 0, len(rows))
	for _, r := range rows {
		job, err := r.job()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

var _ domain.HistoryStore = (*History)(nil)
