package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safedeal/backend/internal/ledger"
)

// OrderRepo is the durability journal behind the in-memory ledger. Every
// transition is written through here so a restarted process can rebuild each
// tenant's ledger without replaying bank transfers.
type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) Save(ctx context.Context, tenant string, o ledger.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escrow_orders (tenant, order_id, buyer, seller, product_name,
		                           amount_nano, status, created_at_unix, timeline_hours, escrow_released)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant, order_id) DO UPDATE SET
			status = EXCLUDED.status,
			escrow_released = EXCLUDED.escrow_released
	`, tenant, o.ID, o.Buyer, o.Seller, o.ProductName,
		o.AmountNano, o.Status, o.CreatedAt, o.TimelineHours, o.EscrowReleased)
	return err
}

func (r *OrderRepo) LoadTenant(ctx context.Context, tenant string) ([]ledger.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, buyer, seller, product_name,
		       amount_nano, status, created_at_unix, timeline_hours, escrow_released
		FROM escrow_orders WHERE tenant = $1 ORDER BY order_id
	`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []ledger.Order
	for rows.Next() {
		var o ledger.Order
		if err := rows.Scan(&o.ID, &o.Buyer, &o.Seller, &o.ProductName,
			&o.AmountNano, &o.Status, &o.CreatedAt, &o.TimelineHours, &o.EscrowReleased); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepo) Tenants(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant FROM escrow_orders ORDER BY tenant`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// TenantSummary aggregates the journal for reporting (cmd/stats).
type TenantSummary struct {
	Tenant       string
	Pending      int64
	Delivered    int64
	Refunded     int64
	PendingNano  uint64
	ReleasedNano uint64
}

func (r *OrderRepo) Summaries(ctx context.Context) ([]TenantSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant,
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'delivered'),
		       COUNT(*) FILTER (WHERE status = 'refunded'),
		       COALESCE(SUM(amount_nano) FILTER (WHERE status = 'pending'), 0),
		       COALESCE(SUM(amount_nano) FILTER (WHERE escrow_released), 0)
		FROM escrow_orders GROUP BY tenant ORDER BY tenant
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TenantSummary
	for rows.Next() {
		var s TenantSummary
		if err := rows.Scan(&s.Tenant, &s.Pending, &s.Delivered, &s.Refunded, &s.PendingNano, &s.ReleasedNano); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
