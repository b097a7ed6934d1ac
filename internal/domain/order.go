package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType selects the trigger semantics for an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus tracks the order lifecycle. Transitions are one-directional:
// pending orders move to exactly one of filled, rejected, or cancelled.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ProductType distinguishes spot trades from leveraged margin/CFD products.
type ProductType string

const (
	ProductTypeSpot   ProductType = "spot"
	ProductTypeMargin ProductType = "margin"
)

// ExecutionStrategy records where an order was ultimately hedged.
type ExecutionStrategy string

const (
	ExecutionStrategyBBook ExecutionStrategy = "b_book"
	ExecutionStrategyABook ExecutionStrategy = "a_book"
)

// Order is a user's trade intent. FilledAmount and AverageFillPrice are set
// together, exactly once, in the same transaction that moves status to filled.
type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	AccountID         uuid.UUID
	OrderNumber       string
	Symbol            string
	Side              OrderSide
	Type              OrderType
	Status            OrderStatus
	ProductType       ProductType
	ExecutionStrategy ExecutionStrategy
	AmountBase        float64
	LimitPrice        *float64
	StopPrice         *float64
	Leverage          int
	FilledAmount      float64
	AverageFillPrice  *float64
	PairID            *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
