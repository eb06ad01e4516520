package repo

import (
	"context"
	"fmt"

	"vidiai/internal/domain"
	"vidiai/internal/infra"
	"vidiai/internal/sqlinline"
)

// LedgerRepository keeps balances in credit_accounts and appends every change
// to credit_ledger_entries in the same statement.
type LedgerRepository struct {
	sql    infra.SQLExecutor
	signup int
}

func NewLedgerRepository(sql infra.SQLExecutor, signupCredits int) *LedgerRepository {
	return &LedgerRepository{sql: sql, signup: signupCredits}
}

// open creates the owner's account with the signup grant if it does not exist.
func (r *LedgerRepository) open(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("repo: owner id: %w", domain.ErrValidation)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QOpenCreditAccount, ownerID, r.signup); err != nil {
		return fmt.Errorf("repo: open account %s: %w", ownerID, err)
	}
	return nil
}

func (r *LedgerRepository) Balance(ctx context.Context, ownerID string) (int, error) {
	if err := r.open(ctx, ownerID); err != nil {
		return 0, err
	}
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectBalance, ownerID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("repo: balance %s: %w", ownerID, err)
	}
	return balance, nil
}

// Debit subtracts amount in one conditional update; no returned row means the
// balance was short.
func (r *LedgerRepository) Debit(ctx context.Context, ownerID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if err := r.open(ctx, ownerID); err != nil {
		return 0, err
	}
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QDebitCredits, ownerID, amount, reason).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("repo: debit %s: %w", ownerID, err)
	}
	return balance, nil
}

func (r *LedgerRepository) Credit(ctx context.Context, ownerID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if err := r.open(ctx, ownerID); err != nil {
		return 0, err
	}
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QCreditCredits, ownerID, amount, reason).Scan(&balance); err != nil {
		return 0, fmt.Errorf("repo: credit %s: %w", ownerID, err)
	}
	return balance, nil
}

// Refund is keyed by credit_refunds.refund_key, so a retried refund never
// credits twice.
func (r *LedgerRepository) Refund(ctx context.Context, ownerID string, amount int, key string) (int, bool, error) {
	if amount <= 0 || key == "" {
		return 0, false, domain.ErrInvalidAmount
	}
	if err := r.open(ctx, ownerID); err != nil {
		return 0, false, err
	}
	var balance int
	err := r.sql.QueryRow(ctx, sqlinline.QRefundCredits, ownerID, amount, key).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if !infra.IsNoRows(err) {
		return 0, false, fmt.Errorf("repo: refund %s: %w", key, err)
	}
	balance, err = r.Balance(ctx, ownerID)
	if err != nil {
		return 0, false, err
	}
	return balance, false, nil
}

func (r *LedgerRepository) Entries(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListLedgerEntries, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: ledger entries: %w", err)
	}
	defer rows.Close()
	out := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.OwnerID, &e.Delta, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo: scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate ledger entries: %w", err)
	}
	return out, nil
}

var _ domain.BalanceLedger = (*LedgerRepository)(nil)
