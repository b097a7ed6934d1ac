package domain

import (
	"time"

	"github.com/google/uuid"
)

// LPRoute is the audit record of an externally-routed fill. Rows are created
// by routed settlement and never mutated by the execution core; status
// transitions belong to the reconciliation process.
type LPRoute struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Provider     string
	LPOrderID    string
	FillPrice    float64
	FillQuantity float64
	Fee          float64
	Status       string
	RoutedAt     time.Time
	FilledAt     *time.Time
	CreatedAt    time.Time
}
