package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. The identity layer is deliberately thin: the
// ledger trusts whatever account id the environment asserts, so a user here is
// just a handle plus an API key hash for token issuance.
type User struct {
	ID           uuid.UUID `json:"id"`
	Handle       string    `json:"handle"`
	APIKeyHash   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
