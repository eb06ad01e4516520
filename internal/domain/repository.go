package domain

import (
	"context"
	"time"
)

// HistoryStore persists job records keyed by job id.
type HistoryStore interface {
	Record(ctx context.Context, job *Job) error
	// Update applies a terminal result. It reports false when the stored job
	// is already terminal, so repeated writes have no effect.
	Update(ctx context.Context, jobID string, res StatusResult) (bool, error)
	MarkRefunded(ctx context.Context, jobID string) error
	Get(ctx context.Context, jobID string) (*Job, error)
	// List returns the owner's jobs newest first.
	List(ctx context.Context, ownerID string) ([]Job, error)
	ListPending(ctx context.Context, limit int) ([]Job, error)
	// ListUnrefunded returns failed jobs that charged credits and have not
	// been refunded yet, oldest first.
	ListUnrefunded(ctx context.Context, limit int) ([]Job, error)
	// Delete hard-removes a job after checking ownership.
	Delete(ctx context.Context, jobID, ownerID string) error
}

// Ledger entry reasons.
const (
	ReasonSignup     = "signup"
	ReasonGeneration = "generation"
	ReasonRefund     = "refund"
	ReasonPurchase   = "purchase"
	ReasonBonus      = "bonus"
	ReasonAdmin      = "admin"
)

// BalanceLedger tracks per-owner integer credit balances.
type BalanceLedger interface {
	Balance(ctx context.Context, ownerID string) (int, error)
	// Debit refuses with ErrInsufficientCredits instead of going negative.
	Debit(ctx context.Context, ownerID string, amount int, reason string) (int, error)
	Credit(ctx context.Context, ownerID string, amount int, reason string) (int, error)
	// Refund credits amount back with ReasonRefund at most once per key.
	// applied is false when key was refunded before; balance is current
	// either way.
	Refund(ctx context.Context, ownerID string, amount int, key string) (balance int, applied bool, err error)
	// Entries returns the owner's most recent ledger entries, newest first.
	Entries(ctx context.Context, ownerID string, limit int) ([]LedgerEntry, error)
}

// LedgerEntry is one appended balance mutation.
type LedgerEntry struct {
	OwnerID      string    `json:"owner_id"`
	Delta        int       `json:"delta"`
	Reason       string    `json:"reason"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatsRepository aggregates admin dashboard counters.
type StatsRepository interface {
	Summary(ctx context.Context) (*Stats, error)
}
