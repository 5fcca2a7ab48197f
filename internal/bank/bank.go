package bank

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
)

// Bank is the funds-transfer capability the escrow ledger consumes.
// Debit is all-or-nothing: on ErrInsufficientFunds no balance changes.
type Bank interface {
	Debit(ctx context.Context, account uuid.UUID, amountNano uint64) error
	Credit(ctx context.Context, account uuid.UUID, amountNano uint64) error
	Balance(ctx context.Context, account uuid.UUID) (uint64, error)
}
