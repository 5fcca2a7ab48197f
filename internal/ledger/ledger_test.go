package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/safedeal/backend/internal/bank"
)

type fixture struct {
	ledger *Ledger
	bank   *bank.MemoryBank
	now    uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{bank: bank.NewMemoryBank(), now: 1_700_000_000}
	f.ledger = New("test", f.bank, func() uint64 { return f.now })
	return f
}

func (f *fixture) fund(t *testing.T, account uuid.UUID, amount uint64) {
	t.Helper()
	if err := f.bank.Credit(context.Background(), account, amount); err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, account uuid.UUID) uint64 {
	t.Helper()
	bal, err := f.bank.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

// checkPoolInvariant verifies pool == sum of pending order amounts.
func checkPoolInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	var sum uint64
	for _, o := range l.Orders() {
		if o.Status == OrderStatusPending {
			sum += o.AmountNano
		}
	}
	if got := l.EscrowBalance(); got != sum {
		t.Fatalf("pool invariant broken: pool=%d, sum of pending=%d", got, sum)
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	o, err := f.ledger.CreateOrder(ctx, buyer, seller, "keyboard", 100, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID != 1 {
		t.Errorf("first order id = %d, want 1", o.ID)
	}
	if o.Status != OrderStatusPending {
		t.Errorf("status = %q, want %q", o.Status, OrderStatusPending)
	}
	if o.EscrowReleased {
		t.Error("new order must not have escrow released")
	}
	if o.CreatedAt != f.now {
		t.Errorf("created_at = %d, want clock value %d", o.CreatedAt, f.now)
	}
	if got := f.balance(t, buyer); got != 900 {
		t.Errorf("buyer balance = %d, want 900", got)
	}
	if got := f.ledger.EscrowBalance(); got != 100 {
		t.Errorf("escrow pool = %d, want 100", got)
	}
	checkPoolInvariant(t, f.ledger)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 50)

	tests := []struct {
		name    string
		buyer   uuid.UUID
		seller  uuid.UUID
		amount  uint64
		wantErr error
	}{
		{"insufficient funds", buyer, seller, 100, bank.ErrInsufficientFunds},
		{"zero amount", buyer, seller, 0, ErrInvalidAmount},
		{"self deal", buyer, buyer, 10, ErrSelfDeal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateOrder(ctx, tt.buyer, tt.seller, "x", tt.amount, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateOrder error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A failed attempt must not move funds or record an order.
	if got := f.balance(t, buyer); got != 50 {
		t.Errorf("buyer balance after failures = %d, want 50", got)
	}
	if got := len(f.ledger.Orders()); got != 0 {
		t.Errorf("orders recorded after failures = %d, want 0", got)
	}
	checkPoolInvariant(t, f.ledger)
}

func TestOrderIDsMonotonicNoGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	for i := 0; i < 5; i++ {
		// Interleave failed attempts; they must not consume ids.
		_, _ = f.ledger.CreateOrder(ctx, buyer, seller, "x", 0, 1)

		o, err := f.ledger.CreateOrder(ctx, buyer, seller, "x", 10, 1)
		if err != nil {
			t.Fatalf("CreateOrder %d: %v", i, err)
		}
		if o.ID != uint64(i+1) {
			t.Fatalf("order id = %d, want %d", o.ID, i+1)
		}
	}
}

func TestConfirmReceived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	o, err := f.ledger.CreateOrder(ctx, buyer, seller, "keyboard", 100, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID)
	if err != nil {
		t.Fatalf("ConfirmReceived: %v", err)
	}
	if got.Status != OrderStatusDelivered || !got.EscrowReleased {
		t.Errorf("order after confirm = %q released=%v, want delivered/true", got.Status, got.EscrowReleased)
	}
	if bal := f.balance(t, seller); bal != 100 {
		t.Errorf("seller balance = %d, want 100", bal)
	}
	if pool := f.ledger.EscrowBalance(); pool != 0 {
		t.Errorf("escrow pool = %d, want 0", pool)
	}
	checkPoolInvariant(t, f.ledger)

	// Delivered is terminal: a later refund must fail even after the deadline.
	f.now += 48 * 3600
	if _, err := f.ledger.Refund(ctx, o.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Refund after delivery error = %v, want ErrInvalidStatus", err)
	}
	// And so must a double confirmation.
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("double confirm error = %v, want ErrInvalidStatus", err)
	}
}

func TestConfirmReceivedAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller, stranger := uuid.New(), uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	o, err := f.ledger.CreateOrder(ctx, buyer, seller, "keyboard", 100, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// Neither the seller nor a third party can self-release.
	for _, caller := range []uuid.UUID{seller, stranger} {
		if _, err := f.ledger.ConfirmReceived(ctx, caller, o.ID); !errors.Is(err, ErrNotBuyer) {
			t.Errorf("ConfirmReceived by %v error = %v, want ErrNotBuyer", caller, err)
		}
	}
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, 999); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("ConfirmReceived unknown order error = %v, want ErrOrderNotFound", err)
	}
	if pool := f.ledger.EscrowBalance(); pool != 100 {
		t.Errorf("escrow pool after rejected confirms = %d, want 100", pool)
	}

	// The buyer check wins over the status check even once the order is terminal.
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID); err != nil {
		t.Fatalf("ConfirmReceived by buyer: %v", err)
	}
	if _, err := f.ledger.ConfirmReceived(ctx, seller, o.ID); !errors.Is(err, ErrNotBuyer) {
		t.Errorf("ConfirmReceived by seller on delivered order error = %v, want ErrNotBuyer", err)
	}
}

func TestRefundAfterDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	o, err := f.ledger.CreateOrder(ctx, buyer, seller, "keyboard", 100, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if got := f.balance(t, buyer); got != 900 {
		t.Fatalf("buyer balance = %d, want 900", got)
	}

	// Before the deadline the refund is rejected.
	if _, err := f.ledger.Refund(ctx, o.ID); !errors.Is(err, ErrTimelineNotExpired) {
		t.Fatalf("early refund error = %v, want ErrTimelineNotExpired", err)
	}

	// One second before the boundary: still rejected.
	f.now = o.CreatedAt + o.TimelineHours*3600 - 1
	if _, err := f.ledger.Refund(ctx, o.ID); !errors.Is(err, ErrTimelineNotExpired) {
		t.Fatalf("refund 1s before deadline error = %v, want ErrTimelineNotExpired", err)
	}

	// At the exact boundary the refund succeeds.
	f.now = o.CreatedAt + o.TimelineHours*3600
	got, err := f.ledger.Refund(ctx, o.ID)
	if err != nil {
		t.Fatalf("Refund at deadline: %v", err)
	}
	if got.Status != OrderStatusRefunded || !got.EscrowReleased {
		t.Errorf("order after refund = %q released=%v, want refunded/true", got.Status, got.EscrowReleased)
	}
	if bal := f.balance(t, buyer); bal != 1000 {
		t.Errorf("buyer balance after refund = %d, want 1000", bal)
	}
	if pool := f.ledger.EscrowBalance(); pool != 0 {
		t.Errorf("escrow pool = %d, want 0", pool)
	}
	checkPoolInvariant(t, f.ledger)

	// Refunded is terminal.
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("confirm after refund error = %v, want ErrInvalidStatus", err)
	}
	if _, err := f.ledger.Refund(ctx, o.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("double refund error = %v, want ErrInvalidStatus", err)
	}
}

func TestRefundScenario(t *testing.T) {
	// Spec walkthrough: buyer with 1000 creates a 100 order with a 1h
	// timeline, clock advances 2h, anyone refunds.
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	o, err := f.ledger.CreateOrder(ctx, buyer, seller, "keyboard", 100, 1)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID != 1 {
		t.Fatalf("order id = %d, want 1", o.ID)
	}

	f.now += 2 * 3600
	if _, err := f.ledger.Refund(ctx, o.ID); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if bal := f.balance(t, buyer); bal != 1000 {
		t.Errorf("buyer balance = %d, want 1000", bal)
	}
	if bal := f.balance(t, seller); bal != 0 {
		t.Errorf("seller balance = %d, want 0", bal)
	}
	if pool := f.ledger.EscrowBalance(); pool != 0 {
		t.Errorf("escrow pool = %d, want 0", pool)
	}
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("confirm after refund error = %v, want ErrInvalidStatus", err)
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)

	// alice buys from bob, bob buys from carol, alice buys from carol
	if _, err := f.ledger.CreateOrder(ctx, alice, bob, "one", 10, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.CreateOrder(ctx, bob, carol, "two", 20, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.CreateOrder(ctx, alice, carol, "three", 30, 1); err != nil {
		t.Fatal(err)
	}

	all := f.ledger.Orders()
	if len(all) != 3 {
		t.Fatalf("Orders() returned %d orders, want 3", len(all))
	}
	for i, o := range all {
		if o.ID != uint64(i+1) {
			t.Errorf("Orders()[%d].ID = %d, want %d (creation order)", i, o.ID, i+1)
		}
	}

	tests := []struct {
		name    string
		user    uuid.UUID
		wantIDs []uint64
	}{
		{"alice as buyer", alice, []uint64{1, 3}},
		{"bob both sides", bob, []uint64{1, 2}},
		{"carol as seller", carol, []uint64{2, 3}},
		{"uninvolved user", uuid.New(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.ledger.UserOrders(tt.user)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("UserOrders returned %d orders, want %d", len(got), len(tt.wantIDs))
			}
			for i, o := range got {
				if o.ID != tt.wantIDs[i] {
					t.Errorf("UserOrders[%d].ID = %d, want %d", i, o.ID, tt.wantIDs[i])
				}
			}
		})
	}

	if _, err := f.ledger.Order(2); err != nil {
		t.Errorf("Order(2): %v", err)
	}
	if _, err := f.ledger.Order(42); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Order(42) error = %v, want ErrOrderNotFound", err)
	}
	checkPoolInvariant(t, f.ledger)
}

func TestQueriesReturnCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 100)

	if _, err := f.ledger.CreateOrder(ctx, buyer, seller, "x", 10, 1); err != nil {
		t.Fatal(err)
	}

	o, _ := f.ledger.Order(1)
	o.Status = OrderStatusDelivered
	o.AmountNano = 999

	fresh, _ := f.ledger.Order(1)
	if fresh.Status != OrderStatusPending || fresh.AmountNano != 10 {
		t.Error("mutating a returned order leaked into ledger state")
	}
}

func TestExpiredPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	short, err := f.ledger.CreateOrder(ctx, buyer, seller, "short", 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.CreateOrder(ctx, buyer, seller, "long", 10, 72); err != nil {
		t.Fatal(err)
	}

	if got := f.ledger.ExpiredPending(); len(got) != 0 {
		t.Fatalf("ExpiredPending before deadline = %d orders, want 0", len(got))
	}

	f.now += 2 * 3600
	got := f.ledger.ExpiredPending()
	if len(got) != 1 || got[0].ID != short.ID {
		t.Fatalf("ExpiredPending after 2h = %v, want only order %d", got, short.ID)
	}

	// Resolved orders drop out even past their deadline.
	if _, err := f.ledger.Refund(ctx, short.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.ledger.ExpiredPending(); len(got) != 0 {
		t.Errorf("ExpiredPending after refund = %d orders, want 0", len(got))
	}
}

func TestPoolInvariantAcrossSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 10_000)

	for i := 0; i < 10; i++ {
		o, err := f.ledger.CreateOrder(ctx, buyer, seller, "bulk", uint64(100+i), 1)
		if err != nil {
			t.Fatal(err)
		}
		checkPoolInvariant(t, f.ledger)

		switch i % 3 {
		case 0:
			if _, err := f.ledger.ConfirmReceived(ctx, buyer, o.ID); err != nil {
				t.Fatal(err)
			}
		case 1:
			f.now += 2 * 3600
			if _, err := f.ledger.Refund(ctx, o.ID); err != nil {
				t.Fatal(err)
			}
		}
		checkPoolInvariant(t, f.ledger)
	}

	// No funds created or destroyed: buyer + seller + pool == initial 10k.
	total := f.balance(t, buyer) + f.balance(t, seller) + f.ledger.EscrowBalance()
	if total != 10_000 {
		t.Errorf("total funds = %d, want 10000", total)
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	f.fund(t, buyer, 1000)

	for i := 0; i < 3; i++ {
		if _, err := f.ledger.CreateOrder(ctx, buyer, seller, "x", 100, 1); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.ledger.ConfirmReceived(ctx, buyer, 2); err != nil {
		t.Fatal(err)
	}
	snapshot := f.ledger.Orders()

	restored := New("test", f.bank, func() uint64 { return f.now })
	if err := restored.Restore(snapshot); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if pool := restored.EscrowBalance(); pool != 200 {
		t.Errorf("restored pool = %d, want 200 (two pending orders)", pool)
	}
	o, err := restored.CreateOrder(ctx, buyer, seller, "next", 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != 4 {
		t.Errorf("order id after restore = %d, want 4", o.ID)
	}

	// Restoring again must not reset live state.
	if err := restored.Restore(snapshot); err == nil {
		t.Error("Restore into non-empty ledger should fail")
	}
	checkPoolInvariant(t, restored)
}
