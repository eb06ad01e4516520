// Package memory keeps jobs and balances in process memory. It backs
// STORE_BACKEND=memory and the unit tests of the layers above it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vidiai/internal/domain"
)

// History is a mutex-guarded domain.HistoryStore.
type History struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
	now  func() time.Time
}

// NewHistory returns an empty store.
func NewHistory() *History {
	return &History{jobs: make(map[string]domain.Job), now: time.Now}
}

func (h *History) Record(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("memory: record: %w", domain.ErrValidation)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (h *History) Update(ctx context.Context, jobID string, res domain.StatusResult) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !job.Apply(res, h.now().UTC()) {
		return false, nil
	}
	h.jobs[jobID] = job
	return true, nil
}

func (h *History) MarkRefunded(ctx context.Context, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Refunded = true
	job.UpdatedAt = h.now().UTC()
	h.jobs[jobID] = job
	return nil
}

func (h *History) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	job, ok := h.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneJob(job)
	return &out, nil
}

func (h *History) List(ctx context.Context, ownerID string) ([]domain.Job, error) {
	h.mu.RLock()
	out := make([]domain.Job, 0)
	for _, job := range h.jobs {
		if job.OwnerID == ownerID {
			out = append(out, cloneJob(job))
		}
	}
	h.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (h *History) ListPending(ctx context.Context, limit int) ([]domain.Job, error) {
	h.mu.RLock()
	out := make([]domain.Job, 0)
	for _, job := range h.jobs {
		if !job.Status.IsTerminal() {
			out = append(out, cloneJob(job))
		}
	}
	h.mu.RUnlock()
	// Oldest first so long-waiting jobs are not starved by the limit.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *History) ListUnrefunded(ctx context.Context, limit int) ([]domain.Job, error) {
	h.mu.RLock()
	out := make([]domain.Job, 0)
	for _, job := range h.jobs {
		if job.Status == domain.JobStatusFailed && !job.Refunded && job.CostCharged > 0 {
			out = append(out, cloneJob(job))
		}
	}
	h.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *History) Delete(ctx context.Context, jobID, ownerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.OwnerID != ownerID {
		return domain.ErrForbidden
	}
	delete(h.jobs, jobID)
	return nil
}

// snapshot copies every job for the stats aggregation.
func (h *History) snapshot() []domain.Job {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Job, 0, len(h.jobs))
	for _, job := range h.jobs {
		out = append(out, job)
	}
	return out
}

func sortNewestFirst(jobs []domain.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func cloneJob(j domain.Job) domain.Job {
	if j.MediaInputs != nil {
		j.MediaInputs = append([]string(nil), j.MediaInputs...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	return j
}

var _ domain.HistoryStore = (*History)(nil)
