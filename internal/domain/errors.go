package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrAlreadyExists = errors.New("already exists")
	ErrOrderLocked   = errors.New("order execution already in flight")
	ErrStalePrice    = errors.New("no recent price available")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
)

// InsufficientBalanceError reports a balance shortfall discovered during
// settlement. It names the currency that was actually checked (after
// equivalence resolution) together with the required and available amounts,
// so callers never have to parse message text.
type InsufficientBalanceError struct {
	Currency  string
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance (required: %.8f, available: %.8f)",
		e.Currency, e.Required, e.Available)
}
