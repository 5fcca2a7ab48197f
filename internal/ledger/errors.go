package ledger

import (
	"errors"

	"github.com/safedeal/backend/internal/bank"
)

var (
	ErrNotInitialized     = errors.New("ledger: not initialized")
	ErrOrderNotFound      = errors.New("ledger: order not found")
	ErrNotBuyer           = errors.New("ledger: caller is not the buyer")
	ErrInvalidStatus      = errors.New("ledger: order is not pending")
	ErrTimelineNotExpired = errors.New("ledger: delivery timeline has not expired")
	ErrInvalidAmount      = errors.New("ledger: amount must be positive")
	ErrSelfDeal           = errors.New("ledger: buyer and seller must differ")

	// ErrInsufficientFunds is re-exported so callers can match ledger
	// failures without importing the bank package.
	ErrInsufficientFunds = bank.ErrInsufficientFunds
)
