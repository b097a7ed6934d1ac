package lp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
)

type stubProvider struct {
	name   string
	report *ExecutionReport
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ExecuteOrder(ctx context.Context, req *ExecutionRequest) (*ExecutionReport, error) {
	s.calls++
	return s.report, s.err
}

func (s *stubProvider) GetOrderStatus(ctx context.Context, lpOrderID string) (*OrderStatusResponse, error) {
	return &OrderStatusResponse{LPOrderID: lpOrderID, Status: "filled"}, nil
}

func (s *stubProvider) GetBalance(ctx context.Context, currency string) (*BalanceInfo, error) {
	return &BalanceInfo{Currency: currency}, nil
}

func (s *stubProvider) CancelOrder(ctx context.Context, lpOrderID string) error { return nil }

func (s *stubProvider) HealthCheck(ctx context.Context) error { return nil }

func TestProviderManagerFailover(t *testing.T) {
	t.Parallel()

	filled := &ExecutionReport{Status: "filled", AveragePrice: decimal.NewFromInt(100)}

	t.Run("primary fills", func(t *testing.T) {
		t.Parallel()

		primary := &stubProvider{name: "alpha", report: filled}
		fallback := &stubProvider{name: "beta", report: filled}

		pm := NewProviderManager()
		pm.Register(primary)
		pm.Register(fallback)
		require.NoError(t, pm.SetPrimary("alpha"))
		require.NoError(t, pm.SetFallback("beta"))

		report, venue, err := pm.ExecuteWithFailover(context.Background(), &ExecutionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "alpha", venue)
		assert.Equal(t, "filled", report.Status)
		assert.Equal(t, 0, fallback.calls)
	})

	t.Run("falls back when primary errors", func(t *testing.T) {
		t.Parallel()

		primary := &stubProvider{name: "alpha", err: ErrInsufficientLiquidity}
		fallback := &stubProvider{name: "beta", report: filled}

		pm := NewProviderManager()
		pm.Register(primary)
		pm.Register(fallback)
		require.NoError(t, pm.SetPrimary("alpha"))
		require.NoError(t, pm.SetFallback("beta"))

		report, venue, err := pm.ExecuteWithFailover(context.Background(), &ExecutionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "beta", venue)
		assert.Equal(t, "filled", report.Status)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("both fail", func(t *testing.T) {
		t.Parallel()

		primary := &stubProvider{name: "alpha", err: ErrInsufficientLiquidity}
		fallback := &stubProvider{name: "beta", err: ErrOrderRejected}

		pm := NewProviderManager()
		pm.Register(primary)
		pm.Register(fallback)
		require.NoError(t, pm.SetPrimary("alpha"))
		require.NoError(t, pm.SetFallback("beta"))

		_, _, err := pm.ExecuteWithFailover(context.Background(), &ExecutionRequest{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientLiquidity))
		assert.True(t, errors.Is(err, ErrOrderRejected))
	})

	t.Run("no fallback returns primary error", func(t *testing.T) {
		t.Parallel()

		primary := &stubProvider{name: "alpha", err: ErrOrderRejected}

		pm := NewProviderManager()
		pm.Register(primary)
		require.NoError(t, pm.SetPrimary("alpha"))

		_, venue, err := pm.ExecuteWithFailover(context.Background(), &ExecutionRequest{})
		assert.Equal(t, "alpha", venue)
		assert.ErrorIs(t, err, ErrOrderRejected)
	})

	t.Run("unregistered primary", func(t *testing.T) {
		t.Parallel()

		pm := NewProviderManager()
		assert.ErrorIs(t, pm.SetPrimary("missing"), ErrProviderNotFound)

		_, _, err := pm.ExecuteWithFailover(context.Background(), &ExecutionRequest{})
		assert.ErrorIs(t, err, ErrNoPrimaryProvider)
	})
}

func TestMockProviderFills(t *testing.T) {
	t.Parallel()

	m := NewMockProvider("mock", 0, 10)
	m.SetLatency(time.Millisecond)
	m.SetQuote(decimal.NewFromInt(10000))

	t.Run("market buy slips up", func(t *testing.T) {
		t.Parallel()

		report, err := m.ExecuteOrder(context.Background(), &ExecutionRequest{
			Symbol:    "BTCUSDT",
			Side:      domain.OrderSideBuy,
			Quantity:  decimal.NewFromInt(1),
			OrderType: "market",
		})
		require.NoError(t, err)
		assert.Equal(t, "filled", report.Status)
		// 10000 * (1 + 10/10000) = 10010
		assert.True(t, report.AveragePrice.Equal(decimal.NewFromInt(10010)),
			"got %s", report.AveragePrice)
	})

	t.Run("limit fills at limit", func(t *testing.T) {
		t.Parallel()

		limit := decimal.NewFromInt(9990)
		report, err := m.ExecuteOrder(context.Background(), &ExecutionRequest{
			Symbol:     "BTCUSDT",
			Side:       domain.OrderSideSell,
			Quantity:   decimal.NewFromInt(2),
			OrderType:  "limit",
			LimitPrice: &limit,
		})
		require.NoError(t, err)
		assert.True(t, report.AveragePrice.Equal(limit))
		assert.True(t, report.RemainingQty.IsZero())
	})

	t.Run("always-failing provider rejects", func(t *testing.T) {
		t.Parallel()

		bad := NewMockProvider("bad", 1, 0)
		bad.SetLatency(time.Millisecond)
		_, err := bad.ExecuteOrder(context.Background(), &ExecutionRequest{
			Quantity:  decimal.NewFromInt(1),
			OrderType: "market",
		})
		assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	})
}
