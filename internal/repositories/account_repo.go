package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safedeal/backend/internal/bank"
	"github.com/safedeal/backend/internal/models"
)

// AccountRepo is the Postgres-backed funds-transfer capability. The guarded
// UPDATE makes Debit all-or-nothing: either the full amount leaves the
// balance or the row is untouched.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

var _ bank.Bank = (*AccountRepo)(nil)

func (r *AccountRepo) EnsureAccount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, balance_nano) VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}

func (r *AccountRepo) Debit(ctx context.Context, account uuid.UUID, amountNano uint64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET balance_nano = balance_nano - $1, updated_at = now()
		WHERE id = $2 AND balance_nano >= $1
	`, amountNano, account)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return bank.ErrInsufficientFunds
	}
	return nil
}

func (r *AccountRepo) Credit(ctx context.Context, account uuid.UUID, amountNano uint64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, balance_nano) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			balance_nano = accounts.balance_nano + EXCLUDED.balance_nano,
			updated_at = now()
	`, account, amountNano)
	return err
}

func (r *AccountRepo) Balance(ctx context.Context, account uuid.UUID) (uint64, error) {
	var bal uint64
	err := r.pool.QueryRow(ctx, `SELECT balance_nano FROM accounts WHERE id = $1`, account).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bal, nil
}

func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, balance_nano, updated_at FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.BalanceNano, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, bank.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
