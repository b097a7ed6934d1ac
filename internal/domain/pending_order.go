package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingOrderStatus tracks a resting order awaiting its trigger.
type PendingOrderStatus string

const (
	PendingOrderStatusPending   PendingOrderStatus = "pending"
	PendingOrderStatusExecuted  PendingOrderStatus = "executed"
	PendingOrderStatusCancelled PendingOrderStatus = "cancelled"
	PendingOrderStatusFailed    PendingOrderStatus = "failed"
)

// PendingOrder is a limit/stop/stop-limit order resting until the market
// reaches its trigger. The worker evaluates it against each price update and
// materialises a regular Order for execution once triggered.
type PendingOrder struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountID     uuid.UUID
	OrderNumber   string
	Symbol        string
	Type          OrderType
	Side          OrderSide
	Quantity      float64
	LimitPrice    *float64
	StopPrice     *float64
	Leverage      int
	ProductType   ProductType
	Status        PendingOrderStatus
	ExecutedAt    *time.Time
	ExecutedPrice *float64
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExecutionPrice returns the price a triggered pending order should fill at,
// giving the client price improvement when the market is better than the
// limit. Without a limit price the order fills at market.
func (po *PendingOrder) ExecutionPrice(currentPrice float64) float64 {
	if po.LimitPrice == nil {
		return currentPrice
	}
	if po.Side == OrderSideBuy {
		// Never pay more than the limit.
		if currentPrice < *po.LimitPrice {
			return currentPrice
		}
		return *po.LimitPrice
	}
	// Never receive less than the limit.
	if currentPrice > *po.LimitPrice {
		return currentPrice
	}
	return *po.LimitPrice
}
