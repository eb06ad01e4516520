package memory

import (
	"context"
	"time"

	"vidiai/internal/domain"
)

// Stats aggregates the dashboard from a memory History and Ledger. A nil
// History reports no jobs.
type Stats struct {
	History *History
	Ledger  *Ledger
	Now     func() time.Time
}

func (s Stats) Summary(ctx context.Context) (*domain.Stats, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	owners, paid, purchased := s.Ledger.accounts()
	out := &domain.Stats{
		TotalUsers:       int64(owners),
		PaidUsers:        int64(paid),
		FreeUsers:        int64(owners - paid),
		CreditsPurchased: purchased,
		JobsByStatus:     map[string]int64{},
	}
	since := now().Add(-24 * time.Hour)
	active := map[string]struct{}{}
	var jobs []domain.Job
	if s.History != nil {
		jobs = s.History.snapshot()
	}
	for _, job := range jobs {
		out.JobsByStatus[string(job.Status)]++
		if job.CreatedAt.After(since) {
			active[job.OwnerID] = struct{}{}
		}
	}
	out.Active24h = int64(len(active))
	return out, nil
}

var _ domain.StatsRepository = Stats{}
