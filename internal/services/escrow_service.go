package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/config"
	"github.com/safedeal/backend/internal/events"
	"github.com/safedeal/backend/internal/ledger"
	"github.com/safedeal/backend/internal/models"
	"github.com/safedeal/backend/internal/repositories"
)

// EscrowService fronts the ledger registry with the surrounding plumbing:
// durability journal, audit trail and event publication. The ledger itself
// stays the authority on order state and the escrow pool; journal, audit and
// events are write-behind and never veto a completed transition.
type EscrowService struct {
	registry  *ledger.Registry
	accounts  *repositories.AccountRepo
	orderRepo *repositories.OrderRepo
	auditRepo *repositories.AuditRepo
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewEscrowService(
	registry *ledger.Registry,
	accounts *repositories.AccountRepo,
	orderRepo *repositories.OrderRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		registry:  registry,
		accounts:  accounts,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Restore rebuilds every journaled tenant ledger and initializes the default
// tenant. Safe to call once at boot; ledgers that already hold state are
// never reset.
func (s *EscrowService) Restore(ctx context.Context) error {
	tenants, err := s.orderRepo.Tenants(ctx)
	if err != nil {
		return fmt.Errorf("load tenants: %w", err)
	}
	for _, tenant := range tenants {
		orders, err := s.orderRepo.LoadTenant(ctx, tenant)
		if err != nil {
			return fmt.Errorf("load tenant %s: %w", tenant, err)
		}
		l := s.registry.Initialize(tenant)
		if err := l.Restore(orders); err != nil {
			return err
		}
		s.log.Info("ledger restored",
			zap.String("tenant", tenant),
			zap.Int("orders", len(orders)),
			zap.Uint64("pool_nano", l.EscrowBalance()),
		)
	}
	s.registry.Initialize(s.cfg.DefaultTenant)
	return nil
}

func (s *EscrowService) CreateOrder(ctx context.Context, tenant string, buyer, seller uuid.UUID, productName string, amountNano, timelineHours uint64) (*ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}

	o, err := l.CreateOrder(ctx, buyer, seller, productName, amountNano, timelineHours)
	if err != nil {
		return nil, err
	}

	s.journal(ctx, tenant, o)
	s.audit(ctx, &buyer, "user", "order_created", tenant, o.ID, map[string]any{
		"seller": seller.String(), "amount_nano": amountNano, "timeline_hours": timelineHours,
	})
	s.publish(ctx, events.Event{
		Type: events.EventOrderCreated,
		Payload: map[string]any{
			"tenant":   tenant,
			"order_id": o.ID,
			"buyer":    o.Buyer.String(),
			"seller":   o.Seller.String(),
		},
	})
	return o, nil
}

// ConfirmReceived releases escrowed funds to the seller. Authorization is
// enforced by the ledger: only the order's buyer succeeds.
func (s *EscrowService) ConfirmReceived(ctx context.Context, tenant string, caller uuid.UUID, orderID uint64) (*ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}

	o, err := l.ConfirmReceived(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}

	s.journal(ctx, tenant, o)
	s.audit(ctx, &caller, "user", "order_delivered", tenant, o.ID, map[string]any{
		"old_status": ledger.OrderStatusPending, "new_status": o.Status,
	})
	s.publishStatusChange(ctx, tenant, o)
	return o, nil
}

// RefundOrder returns escrowed funds to the buyer after the deadline. actor
// is recorded for the audit trail only; the refund itself is permissionless.
func (s *EscrowService) RefundOrder(ctx context.Context, tenant string, actor *uuid.UUID, orderID uint64) (*ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}

	o, err := l.Refund(ctx, orderID)
	if err != nil {
		return nil, err
	}

	actorType := "system"
	if actor != nil {
		actorType = "user"
	}
	s.journal(ctx, tenant, o)
	s.audit(ctx, actor, actorType, "order_refunded", tenant, o.ID, map[string]any{
		"old_status": ledger.OrderStatusPending, "new_status": o.Status,
	})
	s.publishStatusChange(ctx, tenant, o)
	return o, nil
}

func (s *EscrowService) GetOrder(ctx context.Context, tenant string, orderID uint64) (*ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}
	return l.Order(orderID)
}

func (s *EscrowService) ListOrders(ctx context.Context, tenant string) ([]ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}
	return l.Orders(), nil
}

func (s *EscrowService) UserOrders(ctx context.Context, tenant string, user uuid.UUID) ([]ledger.Order, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return nil, err
	}
	return l.UserOrders(user), nil
}

func (s *EscrowService) EscrowBalance(ctx context.Context, tenant string) (uint64, error) {
	l, err := s.registry.Get(tenant)
	if err != nil {
		return 0, err
	}
	return l.EscrowBalance(), nil
}

func (s *EscrowService) OrderEvents(ctx context.Context, tenant string, orderID uint64) ([]models.AuditLog, error) {
	return s.auditRepo.GetByEntity(ctx, "order", orderEntityID(tenant, orderID), 100, 0)
}

// Balance returns a user's transferable balance.
func (s *EscrowService) Balance(ctx context.Context, user uuid.UUID) (uint64, error) {
	return s.accounts.Balance(ctx, user)
}

// Deposit tops up a user's balance. Stands in for the external payment rails
// that fund accounts in a full deployment.
func (s *EscrowService) Deposit(ctx context.Context, user uuid.UUID, amountNano uint64) (uint64, error) {
	if amountNano == 0 {
		return 0, ledger.ErrInvalidAmount
	}
	if err := s.accounts.Credit(ctx, user, amountNano); err != nil {
		return 0, err
	}

	s.audit(ctx, &user, "user", "balance_deposited", "", 0, map[string]any{"amount_nano": amountNano})
	s.publish(ctx, events.Event{
		Type:    events.EventBalanceDeposited,
		Payload: map[string]any{"user": user.String(), "amount_nano": amountNano},
	})
	return s.accounts.Balance(ctx, user)
}

// --- write-behind helpers ---

func (s *EscrowService) journal(ctx context.Context, tenant string, o *ledger.Order) {
	if err := s.orderRepo.Save(ctx, tenant, *o); err != nil {
		s.log.Error("order journal write failed",
			zap.String("tenant", tenant),
			zap.Uint64("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func (s *EscrowService) audit(ctx context.Context, actor *uuid.UUID, actorType, action, tenant string, orderID uint64, meta map[string]any) {
	entry := models.AuditLog{
		ActorUserID: actor,
		ActorType:   actorType,
		Action:      action,
		EntityType:  "order",
		Meta:        meta,
	}
	if tenant != "" {
		entry.EntityID = orderEntityID(tenant, orderID)
	} else {
		entry.EntityType = "account"
		if actor != nil {
			entry.EntityID = actor.String()
		}
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *EscrowService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, events.StreamOrders, event); err != nil {
		s.log.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *EscrowService) publishStatusChange(ctx context.Context, tenant string, o *ledger.Order) {
	s.publish(ctx, events.Event{
		Type: events.EventOrderStatusChanged,
		Payload: map[string]any{
			"tenant":     tenant,
			"order_id":   o.ID,
			"buyer":      o.Buyer.String(),
			"seller":     o.Seller.String(),
			"new_status": o.Status,
		},
	})
}

func orderEntityID(tenant string, orderID uint64) string {
	return fmt.Sprintf("%s:%d", tenant, orderID)
}
