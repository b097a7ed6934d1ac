package lp

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
)

// MockProvider is a simulated venue for development and tests. It fills at
// the request's limit price (or a caller-supplied quote) with configurable
// slippage, latency, and failure rate, without touching the network.
type MockProvider struct {
	name        string
	latency     time.Duration
	failureRate float64
	slippageBps int

	mu    sync.RWMutex
	quote decimal.Decimal
}

// NewMockProvider creates a mock venue. failureRate is the probability in
// [0,1] of a simulated rejection; slippageBps is market-order slippage in
// basis points.
func NewMockProvider(name string, failureRate float64, slippageBps int) *MockProvider {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	if slippageBps < 0 {
		slippageBps = 0
	}
	return &MockProvider{
		name:        name,
		latency:     10 * time.Millisecond,
		failureRate: failureRate,
		slippageBps: slippageBps,
		quote:       decimal.NewFromInt(50000),
	}
}

// Name returns the provider's name.
func (m *MockProvider) Name() string { return m.name }

// SetQuote sets the price market orders fill around.
func (m *MockProvider) SetQuote(price decimal.Decimal) {
	m.mu.Lock()
	m.quote = price
	m.mu.Unlock()
}

// SetLatency configures the simulated network latency.
func (m *MockProvider) SetLatency(d time.Duration) { m.latency = d }

func (m *MockProvider) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrTimeout
	case <-timer.C:
		return nil
	}
}

// ExecuteOrder simulates a fill. Market orders slip against the taker by the
// configured basis points; limit orders fill exactly at the limit.
func (m *MockProvider) ExecuteOrder(ctx context.Context, req *ExecutionRequest) (*ExecutionReport, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	if rand.Float64() < m.failureRate {
		return &ExecutionReport{
			Status:       "rejected",
			ErrorMessage: "simulated liquidity shortfall",
		}, ErrInsufficientLiquidity
	}

	m.mu.RLock()
	quote := m.quote
	m.mu.RUnlock()

	slip := decimal.NewFromInt(int64(m.slippageBps)).Div(decimal.NewFromInt(10000))

	var fillPrice decimal.Decimal
	switch {
	case req.OrderType == "market":
		if req.Side == domain.OrderSideBuy {
			fillPrice = quote.Mul(decimal.NewFromInt(1).Add(slip))
		} else {
			fillPrice = quote.Mul(decimal.NewFromInt(1).Sub(slip))
		}
	case req.LimitPrice != nil:
		fillPrice = *req.LimitPrice
	default:
		fillPrice = quote
	}

	notional := req.Quantity.Mul(fillPrice)
	fee := notional.Mul(decimal.NewFromFloat(0.001))

	return &ExecutionReport{
		LPOrderID:     fmt.Sprintf("MOCK-%s", uuid.New().String()[:8]),
		Status:        "filled",
		FilledQty:     req.Quantity,
		RemainingQty:  decimal.Zero,
		AveragePrice:  fillPrice,
		Fee:           fee,
		FeeCurrency:   "USDT",
		ExecutionTime: time.Now().UTC(),
	}, nil
}

// GetOrderStatus reports every known order as fully filled.
func (m *MockProvider) GetOrderStatus(ctx context.Context, lpOrderID string) (*OrderStatusResponse, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	quote := m.quote
	m.mu.RUnlock()

	qty := decimal.NewFromInt(1)
	now := time.Now().UTC()
	return &OrderStatusResponse{
		LPOrderID:    lpOrderID,
		Status:       "filled",
		Side:         domain.OrderSideBuy,
		OriginalQty:  qty,
		ExecutedQty:  qty,
		RemainingQty: decimal.Zero,
		AveragePrice: quote,
		CreatedAt:    now.Add(-time.Minute),
		UpdatedAt:    now,
	}, nil
}

// CancelOrder simulates a cancel, occasionally reporting the order as
// already filled.
func (m *MockProvider) CancelOrder(ctx context.Context, lpOrderID string) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	if rand.Float64() < 0.1 {
		return fmt.Errorf("lp: order %s already filled, cannot cancel", lpOrderID)
	}
	return nil
}

// GetBalance returns a large simulated balance.
func (m *MockProvider) GetBalance(ctx context.Context, currency string) (*BalanceInfo, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	available := decimal.NewFromInt(1_000_000)
	locked := decimal.NewFromInt(50_000)
	return &BalanceInfo{
		Currency:  currency,
		Available: available,
		Locked:    locked,
		Total:     available.Add(locked),
	}, nil
}

// HealthCheck always reports healthy.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return m.sleep(ctx)
}

// Compile-time interface check.
var _ LiquidityProvider = (*MockProvider)(nil)
