package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContractSide is the direction of a leveraged position.
type ContractSide string

const (
	ContractSideLong  ContractSide = "long"
	ContractSideShort ContractSide = "short"
)

// ContractStatus tracks the position lifecycle.
type ContractStatus string

const (
	ContractStatusOpen       ContractStatus = "open"
	ContractStatusClosed     ContractStatus = "closed"
	ContractStatusLiquidated ContractStatus = "liquidated"
	ContractStatusCancelled  ContractStatus = "cancelled"
)

// Contract is an open or closed leveraged exposure. The two contracts of a
// hedge pair share PairID, lot size, and entry price, carry opposite sides,
// and their liquidation prices sit symmetrically around the entry price.
type Contract struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AccountID        uuid.UUID
	Symbol           string
	ContractNumber   string
	Side             ContractSide
	Status           ContractStatus
	LotSize          float64
	EntryPrice       float64
	MarginUsed       float64
	Leverage         int
	LiquidationPrice float64
	TakeProfit       *float64
	StopLoss         *float64
	ClosePrice       *float64
	PnL              float64
	Swap             float64
	Commission       float64
	PairID           *uuid.UUID
	CreatedAt        time.Time
	ClosedAt         *time.Time
	UpdatedAt        time.Time
}
