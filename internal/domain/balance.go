package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is a per-account, per-currency amount. Committed amounts are never
// negative; rows are created lazily on first credit and never deleted.
type Balance struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Currency  string
	Amount    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalanceSelection is the outcome of currency-equivalence resolution: the
// currency that was actually chosen to debit/credit and the amount available
// in that single currency. Equivalent currencies are fungible for selection
// only; the two amounts are never summed.
type BalanceSelection struct {
	Currency string
	Amount   float64
}

// Account is the funding account an order settles against.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  string
	CreatedAt time.Time
}
