package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// OrderStore persists orders outside the execution transaction. Mutations of
// a pending order's terminal state during execution happen inside the
// orchestrator's own transaction, not through this interface.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id uuid.UUID) (Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, opts ListOpts) ([]Order, error)
	// MarkRejected records the caller-side rejection of an order the
	// execution core left pending after a soft failure.
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) error
}

// PendingOrderStore persists resting orders awaiting their trigger.
type PendingOrderStore interface {
	Create(ctx context.Context, po PendingOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (PendingOrder, error)
	ListPendingBySymbol(ctx context.Context, symbol string) ([]PendingOrder, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, opts ListOpts) ([]PendingOrder, error)
	MarkExecuted(ctx context.Context, id uuid.UUID, executedPrice float64) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// PositionStore reads and closes contracts outside the execution transaction.
// Contract creation happens only inside settlement strategies.
type PositionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Contract, error)
	ListOpenByAccount(ctx context.Context, accountID uuid.UUID) ([]Contract, error)
	ListOpenBySymbol(ctx context.Context, symbol string) ([]Contract, error)
	// NetExposure is sum(long notional) - sum(short notional) over open
	// contracts for one symbol; TotalNetExposure spans all symbols.
	NetExposure(ctx context.Context, symbol string) (decimal.Decimal, error)
	TotalNetExposure(ctx context.Context) (decimal.Decimal, error)
}

// BalanceStore reads balances outside the execution transaction.
type BalanceStore interface {
	Get(ctx context.Context, accountID uuid.UUID, currency string) (Balance, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Balance, error)
	// MarginBalance sums the settlement-equivalent margin currencies
	// (USD/USDT) for margin-metrics reporting. Selection for settlement
	// never sums; this is a reporting aggregate only.
	MarginBalance(ctx context.Context, accountID uuid.UUID) (float64, error)
}

// InstrumentStore reads instrument metadata and leverage configuration.
type InstrumentStore interface {
	GetBySymbol(ctx context.Context, symbol string) (Instrument, error)
	ListActive(ctx context.Context) ([]Instrument, error)
}

// LPRouteStore reads LP routing audit records.
type LPRouteStore interface {
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (LPRoute, error)
	ListRecent(ctx context.Context, limit int) ([]LPRoute, error)
}

// AuditStore persists the execution audit trail.
type AuditStore interface {
	Insert(ctx context.Context, e AuditEntry) error
	ListSince(ctx context.Context, since time.Time, limit int) ([]AuditEntry, error)
}

// AccountStore reads funding accounts.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
}
