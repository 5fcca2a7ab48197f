package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/ledger"
)

// RefundSweeper walks every tenant on a ticker and triggers the
// permissionless refund for pending orders whose timeline has expired. It is
// just another caller of the refund entry point; a stalled sweeper never
// blocks anyone else from claiming an expired refund.
type RefundSweeper struct {
	registry *ledger.Registry
	svc      *EscrowService
	interval time.Duration
	log      *zap.Logger
}

func NewRefundSweeper(registry *ledger.Registry, svc *EscrowService, interval time.Duration, log *zap.Logger) *RefundSweeper {
	return &RefundSweeper{registry: registry, svc: svc, interval: interval, log: log}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *RefundSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.SweepAll(ctx)
			}
		}
	}()
}

// SweepAll refunds every expired pending order across all tenants and
// returns the number of refunds performed.
func (w *RefundSweeper) SweepAll(ctx context.Context) int {
	refunded := 0
	for _, tenant := range w.registry.Tenants() {
		l, err := w.registry.Get(tenant)
		if err != nil {
			continue
		}
		for _, o := range l.ExpiredPending() {
			if _, err := w.svc.RefundOrder(ctx, tenant, nil, o.ID); err != nil {
				// Lost the race with a buyer confirmation or another
				// refund; both leave the order terminal.
				w.log.Debug("sweep refund skipped",
					zap.String("tenant", tenant),
					zap.Uint64("order_id", o.ID),
					zap.Error(err),
				)
				continue
			}
			refunded++
			w.log.Info("expired order refunded",
				zap.String("tenant", tenant),
				zap.Uint64("order_id", o.ID),
				zap.Uint64("amount_nano", o.AmountNano),
			)
		}
	}
	return refunded
}
