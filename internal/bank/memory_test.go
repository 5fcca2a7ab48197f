package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryBankDebitCredit(t *testing.T) {
	b := NewMemoryBank()
	ctx := context.Background()
	acc := uuid.New()

	if err := b.Credit(ctx, acc, 500); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := b.Debit(ctx, acc, 200); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	bal, err := b.Balance(ctx, acc)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 300 {
		t.Errorf("balance = %d, want 300", bal)
	}
}

func TestMemoryBankInsufficientFunds(t *testing.T) {
	b := NewMemoryBank()
	ctx := context.Background()
	acc := uuid.New()

	if err := b.Credit(ctx, acc, 100); err != nil {
		t.Fatal(err)
	}
	err := b.Debit(ctx, acc, 101)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Debit error = %v, want ErrInsufficientFunds", err)
	}

	// Failed debit must not move anything.
	bal, _ := b.Balance(ctx, acc)
	if bal != 100 {
		t.Errorf("balance after failed debit = %d, want 100", bal)
	}
}

func TestMemoryBankUnknownAccount(t *testing.T) {
	b := NewMemoryBank()
	ctx := context.Background()

	bal, err := b.Balance(ctx, uuid.New())
	if err != nil || bal != 0 {
		t.Errorf("Balance on fresh account = (%d, %v), want (0, nil)", bal, err)
	}
	if err := b.Debit(ctx, uuid.New(), 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Debit on fresh account error = %v, want ErrInsufficientFunds", err)
	}
}
