package bank

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBank keeps balances in process memory. Used by tests and by
// standalone deployments that run without Postgres.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[uuid.UUID]uint64
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[uuid.UUID]uint64)}
}

func (b *MemoryBank) Debit(ctx context.Context, account uuid.UUID, amountNano uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balances[account]
	if bal < amountNano {
		return ErrInsufficientFunds
	}
	b.balances[account] = bal - amountNano
	return nil
}

func (b *MemoryBank) Credit(ctx context.Context, account uuid.UUID, amountNano uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[account] += amountNano
	return nil
}

func (b *MemoryBank) Balance(ctx context.Context, account uuid.UUID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.balances[account], nil
}
