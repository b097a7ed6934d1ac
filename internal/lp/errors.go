package lp

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound indicates the requested provider is not registered.
	ErrProviderNotFound = errors.New("lp: provider not found")

	// ErrNoPrimaryProvider indicates no primary venue has been configured.
	ErrNoPrimaryProvider = errors.New("lp: no primary provider configured")

	// ErrInsufficientLiquidity indicates the venue cannot fill the order.
	ErrInsufficientLiquidity = errors.New("lp: insufficient liquidity")

	// ErrOrderRejected indicates the venue rejected the order.
	ErrOrderRejected = errors.New("lp: order rejected")

	// ErrTimeout indicates the venue did not answer in time.
	ErrTimeout = errors.New("lp: request timed out")
)

// FailoverError carries both errors when the primary and the fallback venue
// each failed to fill. errors.Is matches against either.
type FailoverError struct {
	Primary  error
	Fallback error
}

func (e *FailoverError) Error() string {
	return fmt.Sprintf("lp: primary failed: %v; fallback failed: %v", e.Primary, e.Fallback)
}

func (e *FailoverError) Is(target error) bool {
	return errors.Is(e.Primary, target) || errors.Is(e.Fallback, target)
}
