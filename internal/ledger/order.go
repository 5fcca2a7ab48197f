package ledger

import "github.com/google/uuid"

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusRefunded  = "refunded"
)

// Valid state transitions: from -> []to. Both delivered and refunded are
// terminal; nothing leaves them.
var ValidOrderTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered: {},
	OrderStatusRefunded:  {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidOrderTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Order is one escrow transaction. Amounts are in nanotokens, the smallest
// currency unit. CreatedAt is unix seconds from the ledger clock.
type Order struct {
	ID            uint64    `json:"id"`
	Buyer         uuid.UUID `json:"buyer"`
	Seller        uuid.UUID `json:"seller"`
	ProductName   string    `json:"product_name"`
	AmountNano    uint64    `json:"amount_nano"`
	Status        string    `json:"status"`
	CreatedAt     uint64    `json:"created_at"`
	TimelineHours uint64    `json:"timeline_hours"`
	// EscrowReleased tracks that funds left the pool for this order.
	// Redundant with a terminal status, kept as an explicit audit flag.
	EscrowReleased bool `json:"escrow_released"`
}

// DeadlineAt returns the unix second at which the order becomes refundable.
func (o Order) DeadlineAt() uint64 {
	return o.CreatedAt + o.TimelineHours*3600
}

// Involves reports whether the user is the buyer or the seller of the order.
func (o Order) Involves(user uuid.UUID) bool {
	return o.Buyer == user || o.Seller == user
}
