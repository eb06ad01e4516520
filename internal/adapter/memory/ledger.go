package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vidiai/internal/domain"
)

// Ledger is a mutex-guarded domain.BalanceLedger. Accounts open lazily with
// the signup grant.
type Ledger struct {
	mu       sync.Mutex
	signup   int
	balances map[string]int
	entries  map[string][]domain.LedgerEntry
	refunds  map[string]bool
	now      func() time.Time
}

// NewLedger creates a ledger granting signupCredits to new owners.
func NewLedger(signupCredits int) *Ledger {
	return &Ledger{
		signup:   signupCredits,
		balances: make(map[string]int),
		entries:  make(map[string][]domain.LedgerEntry),
		refunds:  make(map[string]bool),
		now:      time.Now,
	}
}

func (l *Ledger) Balance(ctx context.Context, ownerID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open(ownerID), nil
}

func (l *Ledger) Debit(ctx context.Context, ownerID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("memory: debit %d: %w", amount, domain.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.open(ownerID)
	if balance < amount {
		return balance, domain.ErrInsufficientCredits
	}
	return l.apply(ownerID, -amount, reason), nil
}

func (l *Ledger) Credit(ctx context.Context, ownerID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("memory: credit %d: %w", amount, domain.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open(ownerID)
	return l.apply(ownerID, amount, reason), nil
}

func (l *Ledger) Refund(ctx context.Context, ownerID string, amount int, key string) (int, bool, error) {
	if amount <= 0 || key == "" {
		return 0, false, fmt.Errorf("memory: refund %d %q: %w", amount, key, domain.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.open(ownerID)
	if l.refunds[key] {
		return balance, false, nil
	}
	l.refunds[key] = true
	return l.apply(ownerID, amount, domain.ReasonRefund), true, nil
}

func (l *Ledger) Entries(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.entries[ownerID]
	out := make([]domain.LedgerEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// open returns the balance, creating the account on first sight. Callers hold mu.
func (l *Ledger) open(ownerID string) int {
	if balance, ok := l.balances[ownerID]; ok {
		return balance
	}
	l.balances[ownerID] = 0
	if l.signup > 0 {
		l.apply(ownerID, l.signup, domain.ReasonSignup)
	}
	return l.balances[ownerID]
}

func (l *Ledger) apply(ownerID string, delta int, reason string) int {
	balance := l.balances[ownerID] + delta
	l.balances[ownerID] = balance
	l.entries[ownerID] = append(l.entries[ownerID], domain.LedgerEntry{
		OwnerID:      ownerID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: balance,
		CreatedAt:    l.now().UTC(),
	})
	return balance
}

func (l *Ledger) accounts() (owners int, paid int, purchased int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for owner := range l.balances {
		owners++
		bought := false
		for _, e := range l.entries[owner] {
			if e.Reason == domain.ReasonPurchase {
				purchased += int64(e.Delta)
				bought = true
			}
		}
		if bought {
			paid++
		}
	}
	return owners, paid, purchased
}

var _ domain.BalanceLedger = (*Ledger)(nil)
