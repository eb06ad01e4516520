// Package repo implements the domain stores on Postgres through the
// marker-checked infra.SQLExecutor.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/sqlinline"
)

// HistoryRepository stores jobs in generation_jobs.
type HistoryRepository struct {
	sql infra.SQLExecutor
}

func NewHistoryRepository(sql infra.SQLExecutor) *HistoryRepository {
	return &HistoryRepository{sql: sql}
}

func (r *HistoryRepository) Record(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("repo: record job: %w", domain.ErrValidation)
	}
	media := job.MediaInputs
	if media == nil {
		media = []string{}
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		string(job.Ref.Provider),
		job.Ref.ExternalID,
		job.OwnerID,
		string(job.Kind),
		job.ModelID,
		job.Prompt,
		job.Title,
		job.SourceMediaURL,
		media,
		job.AspectRatio,
		job.Duration,
		job.Country,
		string(job.Status),
		job.CostCharged,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("repo: record job %s: %w", job.ID, err)
	}
	return nil
}

// Update writes a terminal result only while the row is still processing.
func (r *HistoryRepository) Update(ctx context.Context, jobID string, res domain.StatusResult) (bool, error) {
	if !res.Status.IsTerminal() {
		return false, nil
	}
	var resultURL, altURL, errDesc string
	switch res.Status {
	case domain.JobStatusSucceeded:
		resultURL, altURL = res.ResultURL, res.AlternateResultURL
	case domain.JobStatusFailed:
		errDesc = res.ErrorDescription
		if errDesc == "" {
			errDesc = domain.GenericFailureMessage
		}
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QApplyJobResult, jobID, string(res.Status), resultURL, altURL, errDesc)
	if err != nil {
		return false, fmt.Errorf("repo: update job %s: %w", jobID, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := r.owner(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *HistoryRepository) MarkRefunded(ctx context.Context, jobID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobRefunded, jobID)
	if err != nil {
		return fmt.Errorf("repo: mark refunded %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HistoryRepository) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get job %s: %w", jobID, err)
	}
	return job, nil
}

func (r *HistoryRepository) List(ctx context.Context, ownerID string) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("repo: list jobs: %w", err)
	}
	return collectJobs(rows)
}

func (r *HistoryRepository) ListPending(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListPendingJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list pending jobs: %w", err)
	}
	return collectJobs(rows)
}

func (r *HistoryRepository) ListUnrefunded(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListUnrefundedJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list unrefunded jobs: %w", err)
	}
	return collectJobs(rows)
}

func (r *HistoryRepository) Delete(ctx context.Context, jobID, ownerID string) error {
	owner, err := r.owner(ctx, jobID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return domain.ErrForbidden
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteJob, jobID, ownerID)
	if err != nil {
		return fmt.Errorf("repo: delete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HistoryRepository) owner(ctx context.Context, jobID string) (string, error) {
	var owner string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectJobOwner, jobID).Scan(&owner); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("repo: job owner %s: %w", jobID, err)
	}
	return owner, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	defer rows.Close()
	out := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan job: %w", err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate jobs: %w", err)
	}
	return out, nil
}

// scanJob reads the column list shared by the job select queries.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job        domain.Job
		provider   string
		externalID string
		kind       string
		status     string
	)
	if err := row.Scan(
		&job.ID,
		&provider,
		&externalID,
		&job.OwnerID,
		&kind,
		&job.ModelID,
		&job.Prompt,
		&job.Title,
		&job.SourceMediaURL,
		&job.MediaInputs,
		&job.AspectRatio,
		&job.Duration,
		&job.Country,
		&status,
		&job.ResultURL,
		&job.AlternateResultURL,
		&job.ErrorDescription,
		&job.CostCharged,
		&job.Refunded,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	ref, err := domain.ParseJobRef(provider, externalID)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	job.Ref = ref
	job.Kind = domain.ContentKind(kind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.HistoryStore = (*HistoryRepository)(nil)
