// Package lp integrates external liquidity providers for A-Book routing.
package lp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
)

// ExecutionRequest is an order sent to a liquidity provider for execution.
type ExecutionRequest struct {
	OrderID    uuid.UUID        `json:"order_id"`
	Symbol     string           `json:"symbol"`
	Side       domain.OrderSide `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	OrderType  string           `json:"order_type"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	ClientID   string           `json:"client_id"`
}

// ExecutionReport is the provider's fill result.
type ExecutionReport struct {
	LPOrderID     string          `json:"lp_order_id"`
	Status        string          `json:"status"`
	FilledQty     decimal.Decimal `json:"filled_qty"`
	RemainingQty  decimal.Decimal `json:"remaining_qty"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	Fee           decimal.Decimal `json:"fee"`
	FeeCurrency   string          `json:"fee_currency"`
	ExecutionTime time.Time       `json:"execution_time"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}

// BalanceInfo is a provider-side balance snapshot.
type BalanceInfo struct {
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
	Total     decimal.Decimal `json:"total"`
}

// OrderStatusResponse is the venue's view of a previously placed order, used
// by reconciliation to verify fills.
type OrderStatusResponse struct {
	LPOrderID    string           `json:"lp_order_id"`
	Status       string           `json:"status"`
	Symbol       string           `json:"symbol"`
	Side         domain.OrderSide `json:"side"`
	OriginalQty  decimal.Decimal  `json:"original_qty"`
	ExecutedQty  decimal.Decimal  `json:"executed_qty"`
	RemainingQty decimal.Decimal  `json:"remaining_qty"`
	AveragePrice decimal.Decimal  `json:"average_price"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// LiquidityProvider is implemented once per venue. Implementations must be
// safe for concurrent use.
type LiquidityProvider interface {
	Name() string
	ExecuteOrder(ctx context.Context, req *ExecutionRequest) (*ExecutionReport, error)
	GetOrderStatus(ctx context.Context, lpOrderID string) (*OrderStatusResponse, error)
	GetBalance(ctx context.Context, currency string) (*BalanceInfo, error)
	CancelOrder(ctx context.Context, lpOrderID string) error
	HealthCheck(ctx context.Context) error
}

// ProviderManager holds the registered providers and routes execution to the
// primary, failing over to the fallback when the primary errors.
type ProviderManager struct {
	providers map[string]LiquidityProvider
	primary   string
	fallback  string
}

// NewProviderManager creates an empty manager. Register providers and set a
// primary before routing.
func NewProviderManager() *ProviderManager {
	return &ProviderManager{
		providers: make(map[string]LiquidityProvider),
	}
}

// Register adds a provider under its own name.
func (pm *ProviderManager) Register(p LiquidityProvider) {
	pm.providers[p.Name()] = p
}

// SetPrimary selects the primary venue for routing.
func (pm *ProviderManager) SetPrimary(name string) error {
	if _, ok := pm.providers[name]; !ok {
		return ErrProviderNotFound
	}
	pm.primary = name
	return nil
}

// SetFallback selects the optional fallback venue.
func (pm *ProviderManager) SetFallback(name string) error {
	if _, ok := pm.providers[name]; !ok {
		return ErrProviderNotFound
	}
	pm.fallback = name
	return nil
}

// Get retrieves a provider by name.
func (pm *ProviderManager) Get(name string) (LiquidityProvider, error) {
	p, ok := pm.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Names returns all registered provider names.
func (pm *ProviderManager) Names() []string {
	names := make([]string, 0, len(pm.providers))
	for name := range pm.providers {
		names = append(names, name)
	}
	return names
}

// ExecuteWithFailover runs the request on the primary provider and retries on
// the fallback when the primary returns an error. The second return value is
// the name of the venue that actually produced the report.
func (pm *ProviderManager) ExecuteWithFailover(ctx context.Context, req *ExecutionRequest) (*ExecutionReport, string, error) {
	if pm.primary == "" {
		return nil, "", ErrNoPrimaryProvider
	}
	primary, ok := pm.providers[pm.primary]
	if !ok {
		return nil, "", ErrProviderNotFound
	}

	report, err := primary.ExecuteOrder(ctx, req)
	if err == nil {
		return report, primary.Name(), nil
	}

	if pm.fallback == "" {
		return nil, primary.Name(), err
	}
	fallback, ok := pm.providers[pm.fallback]
	if !ok {
		return nil, primary.Name(), err
	}

	report, fbErr := fallback.ExecuteOrder(ctx, req)
	if fbErr != nil {
		return nil, fallback.Name(), &FailoverError{Primary: err, Fallback: fbErr}
	}
	return report, fallback.Name(), nil
}
