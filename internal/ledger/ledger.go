package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safedeal/backend/internal/bank"
)

// Ledger owns the orders of one tenant and the pooled escrow balance backing
// the pending ones. State-changing operations are serialized behind a single
// mutex: an operation either completes fully (ledger state and the external
// bank balance move together) or fails before any mutation.
//
// Invariants held at every point between operations:
//   - pool == sum of AmountNano over orders with status == pending
//   - order ids are assigned 1, 2, 3, ... with no gaps and never reused
//   - once an order leaves pending it never changes again
type Ledger struct {
	tenant string
	bank   bank.Bank
	nowFn  func() uint64

	mu      sync.RWMutex
	orders  map[uint64]*Order
	orderID []uint64 // creation order, for listing queries
	nextID  uint64
	pool    uint64
}

// New creates an empty ledger for the tenant. nowFn may be nil, in which case
// the system clock is used; tests override it for deterministic deadlines.
func New(tenant string, b bank.Bank, nowFn func() uint64) *Ledger {
	if nowFn == nil {
		nowFn = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Ledger{
		tenant: tenant,
		bank:   b,
		nowFn:  nowFn,
		orders: make(map[uint64]*Order),
		nextID: 1,
	}
}

func (l *Ledger) Tenant() string { return l.tenant }

// CreateOrder debits the buyer and appends a pending order. The debit is
// all-or-nothing: on ErrInsufficientFunds nothing is recorded.
func (l *Ledger) CreateOrder(ctx context.Context, buyer, seller uuid.UUID, productName string, amountNano, timelineHours uint64) (*Order, error) {
	if amountNano == 0 {
		return nil, ErrInvalidAmount
	}
	if buyer == seller {
		return nil, ErrSelfDeal
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.bank.Debit(ctx, buyer, amountNano); err != nil {
		return nil, fmt.Errorf("debit buyer: %w", err)
	}

	o := &Order{
		ID:            l.nextID,
		Buyer:         buyer,
		Seller:        seller,
		ProductName:   productName,
		AmountNano:    amountNano,
		Status:        OrderStatusPending,
		CreatedAt:     l.nowFn(),
		TimelineHours: timelineHours,
	}
	l.orders[o.ID] = o
	l.orderID = append(l.orderID, o.ID)
	l.nextID++
	l.pool += amountNano

	cp := *o
	return &cp, nil
}

// ConfirmReceived releases the escrowed amount to the seller. Only the buyer
// may confirm; this is the only path by which a seller receives funds.
func (l *Ledger) ConfirmReceived(ctx context.Context, caller uuid.UUID, orderID uint64) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if caller != o.Buyer {
		return nil, ErrNotBuyer
	}
	if !IsValidTransition(o.Status, OrderStatusDelivered) {
		return nil, ErrInvalidStatus
	}

	if err := l.bank.Credit(ctx, o.Seller, o.AmountNano); err != nil {
		return nil, fmt.Errorf("credit seller: %w", err)
	}
	l.pool -= o.AmountNano
	o.Status = OrderStatusDelivered
	o.EscrowReleased = true

	cp := *o
	return &cp, nil
}

// Refund returns the escrowed amount to the buyer once the delivery timeline
// has expired. Any caller may trigger it: permissionless enforcement keeps a
// stalling seller from holding funds past the deadline.
func (l *Ledger) Refund(ctx context.Context, orderID uint64) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !IsValidTransition(o.Status, OrderStatusRefunded) {
		return nil, ErrInvalidStatus
	}
	if l.nowFn() < o.DeadlineAt() {
		return nil, ErrTimelineNotExpired
	}

	if err := l.bank.Credit(ctx, o.Buyer, o.AmountNano); err != nil {
		return nil, fmt.Errorf("credit buyer: %w", err)
	}
	l.pool -= o.AmountNano
	o.Status = OrderStatusRefunded
	o.EscrowReleased = true

	cp := *o
	return &cp, nil
}

// Order returns a copy of one order.
func (l *Ledger) Order(orderID uint64) (*Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// Orders returns a snapshot of all orders in creation order.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Order, 0, len(l.orderID))
	for _, id := range l.orderID {
		out = append(out, *l.orders[id])
	}
	return out
}

// UserOrders returns orders where the user is buyer or seller, preserving
// relative creation order.
func (l *Ledger) UserOrders(user uuid.UUID) []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Order
	for _, id := range l.orderID {
		if o := l.orders[id]; o.Involves(user) {
			out = append(out, *o)
		}
	}
	return out
}

// ExpiredPending returns pending orders whose refund deadline has passed.
// Used by the refund sweeper.
func (l *Ledger) ExpiredPending() []Order {
	now := l.nowFn()

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Order
	for _, id := range l.orderID {
		if o := l.orders[id]; o.Status == OrderStatusPending && now >= o.DeadlineAt() {
			out = append(out, *o)
		}
	}
	return out
}

// EscrowBalance returns the pooled balance of pending orders.
func (l *Ledger) EscrowBalance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool
}

// Restore loads persisted orders into an empty ledger. The pool and next id
// are recomputed from the snapshot; no bank calls are made, the balances
// already reflect these orders. Restoring into a non-empty ledger is an error
// so a repeated initialize cannot reset live state.
func (l *Ledger) Restore(orders []Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.orders) > 0 {
		return fmt.Errorf("ledger %s: restore into non-empty ledger", l.tenant)
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	var maxID uint64
	for i := range orders {
		o := orders[i]
		if _, dup := l.orders[o.ID]; dup {
			return fmt.Errorf("ledger %s: duplicate order id %d in snapshot", l.tenant, o.ID)
		}
		l.orders[o.ID] = &o
		l.orderID = append(l.orderID, o.ID)
		if o.Status == OrderStatusPending {
			l.pool += o.AmountNano
		}
		if o.ID > maxID {
			maxID = o.ID
		}
	}
	l.nextID = maxID + 1
	return nil
}
