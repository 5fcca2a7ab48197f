package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a transferable balance in nanotokens. One account per user;
// the escrow pool itself is not an account, it lives inside the ledger.
type Account struct {
	ID          uuid.UUID `json:"id"` // same as the owning user's id
	BalanceNano uint64    `json:"balance_nano"`
	UpdatedAt   time.Time `json:"updated_at"`
}
