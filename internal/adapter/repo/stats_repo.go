package repo

import (
	"context"
	"fmt"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/sqlinline"
)

// StatsRepository aggregates the admin dashboard.
type StatsRepository struct {
	sql infra.SQLExecutor
}

func NewStatsRepository(sql infra.SQLExecutor) *StatsRepository {
	return &StatsRepository{sql: sql}
}

func (r *StatsRepository) Summary(ctx context.Context) (*domain.Stats, error) {
	out := &domain.Stats{JobsByStatus: map[string]int64{}}
	if err := r.sql.QueryRow(ctx, sqlinline.QStatsAccounts).Scan(
		&out.TotalUsers,
		&out.PaidUsers,
		&out.CreditsPurchased,
		&out.Active24h,
	); err != nil {
		return nil, fmt.Errorf("repo: stats accounts: %w", err)
	}
	out.FreeUsers = out.TotalUsers - out.PaidUsers

	rows, err := r.sql.Query(ctx, sqlinline.QStatsJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("repo: stats jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("repo: scan stats: %w", err)
		}
		out.JobsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate stats: %w", err)
	}
	return out, nil
}

var _ domain.StatsRepository = (*StatsRepository)(nil)
