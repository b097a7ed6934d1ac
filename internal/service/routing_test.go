package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
)

type fakePositionStore struct {
	netExposure   decimal.Decimal
	totalExposure decimal.Decimal
	netErr        error
	totalErr      error
	open          []domain.Contract
}

func (f *fakePositionStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Contract, error) {
	return domain.Contract{}, domain.ErrNotFound
}

func (f *fakePositionStore) ListOpenByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Contract, error) {
	return f.open, nil
}

func (f *fakePositionStore) ListOpenBySymbol(ctx context.Context, symbol string) ([]domain.Contract, error) {
	return f.open, nil
}

func (f *fakePositionStore) NetExposure(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.netExposure, f.netErr
}

func (f *fakePositionStore) TotalNetExposure(ctx context.Context) (decimal.Decimal, error) {
	return f.totalExposure, f.totalErr
}

func testRoutingConfig(enabled bool) RoutingConfig {
	return RoutingConfig{
		Enabled:               enabled,
		SizeThresholdUSD:      decimal.NewFromInt(100_000),
		ExposureLimitPerInstr: decimal.NewFromInt(500_000),
		ExposureLimitTotal:    decimal.NewFromInt(5_000_000),
		PrimaryProvider:       "mock",
	}
}

func TestShouldRouteToLP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("disabled always stays internal", func(t *testing.T) {
		t.Parallel()

		rs := NewRoutingService(&fakePositionStore{}, testRoutingConfig(false))
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(100), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.False(t, d.RouteToLP)
		assert.Equal(t, domain.ExecutionStrategyBBook, d.Strategy)
	})

	t.Run("notional above threshold routes out", func(t *testing.T) {
		t.Parallel()

		rs := NewRoutingService(&fakePositionStore{}, testRoutingConfig(true))
		// 3 * 50000 = 150k > 100k threshold
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(3), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.True(t, d.RouteToLP)
		assert.Equal(t, domain.ExecutionStrategyABook, d.Strategy)
		assert.True(t, d.Notional.Equal(decimal.NewFromInt(150_000)))
	})

	t.Run("per-instrument exposure breach routes out", func(t *testing.T) {
		t.Parallel()

		store := &fakePositionStore{netExposure: decimal.NewFromInt(480_000)}
		rs := NewRoutingService(store, testRoutingConfig(true))
		// 480k existing + 50k buy = 530k > 500k limit
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(1), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.True(t, d.RouteToLP)
	})

	t.Run("sell reduces exposure and stays internal", func(t *testing.T) {
		t.Parallel()

		store := &fakePositionStore{netExposure: decimal.NewFromInt(480_000)}
		rs := NewRoutingService(store, testRoutingConfig(true))
		// 480k - 50k = 430k < 500k
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideSell,
			decimal.NewFromInt(1), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.False(t, d.RouteToLP)
	})

	t.Run("total exposure breach routes out", func(t *testing.T) {
		t.Parallel()

		store := &fakePositionStore{totalExposure: decimal.NewFromInt(4_990_000)}
		rs := NewRoutingService(store, testRoutingConfig(true))
		d, err := rs.ShouldRouteToLP(ctx, "ETHUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(10), decimal.NewFromInt(2_000))
		require.NoError(t, err)
		assert.True(t, d.RouteToLP)
	})

	t.Run("exposure read failure falls back internal", func(t *testing.T) {
		t.Parallel()

		store := &fakePositionStore{netErr: errors.New("db down")}
		rs := NewRoutingService(store, testRoutingConfig(true))
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(1), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.False(t, d.RouteToLP)
		assert.Contains(t, d.Reason, "failed to determine exposure")
	})

	t.Run("within all limits stays internal", func(t *testing.T) {
		t.Parallel()

		rs := NewRoutingService(&fakePositionStore{}, testRoutingConfig(true))
		d, err := rs.ShouldRouteToLP(ctx, "BTCUSDT", domain.OrderSideBuy,
			decimal.NewFromInt(1), decimal.NewFromInt(50_000))
		require.NoError(t, err)
		assert.False(t, d.RouteToLP)
	})
}

func TestUpdateConfigKeepsProviders(t *testing.T) {
	t.Parallel()

	rs := NewRoutingService(&fakePositionStore{}, testRoutingConfig(true))
	rs.UpdateConfig(RoutingConfig{
		Enabled:          true,
		SizeThresholdUSD: decimal.NewFromInt(200_000),
	})

	cfg := rs.Config()
	assert.Equal(t, "mock", cfg.PrimaryProvider)
	assert.True(t, cfg.SizeThresholdUSD.Equal(decimal.NewFromInt(200_000)))
}
