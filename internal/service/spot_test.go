package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
)

func spotTestOrder(side domain.OrderSide) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		AccountID:   uuid.New(),
		OrderNumber: "ORD-SPOT",
		Symbol:      "BTCUSDT",
		Side:        side,
		Type:        domain.OrderTypeMarket,
		Status:      domain.OrderStatusPending,
		ProductType: domain.ProductTypeSpot,
		AmountBase:  1,
		Leverage:    1,
	}
}

func TestSpotBuyDebitsQuotePlusFee(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USDT"] = 1000

	order := spotTestOrder(domain.OrderSideBuy)
	s := newSpotStrategy("USDT")

	// 1 BTC at 500: notional 500, fee 0.5, required 500.50.
	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.False(t, settlement.Rejected())

	assert.InDelta(t, 499.5, tx.balances["USDT"], 1e-9)
	assert.InDelta(t, 1.0, tx.balances["BTC"], 1e-9)

	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assert.Equal(t, 1.0, order.FilledAmount)
	require.NotNil(t, order.AverageFillPrice)
	assert.Equal(t, 500.0, *order.AverageFillPrice)
}

func TestSpotBuyInsufficientBalance(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USDT"] = 500

	order := spotTestOrder(domain.OrderSideBuy)
	s := newSpotStrategy("USDT")

	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	ib := settlement.Rejection.Insufficiency
	require.NotNil(t, ib)
	assert.Equal(t, "USDT", ib.Currency)
	assert.InDelta(t, 500.5, ib.Required, 1e-9)
	assert.InDelta(t, 500.0, ib.Available, 1e-9)

	// Nothing moved and the order was not touched.
	assert.Empty(t, tx.execSQL)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestSpotBuyDebitsEquivalentCurrency(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 1000 // no USDT row at all

	order := spotTestOrder(domain.OrderSideBuy)
	s := newSpotStrategy("USDT")

	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.False(t, settlement.Rejected())

	assert.InDelta(t, 499.5, tx.balances["USD"], 1e-9)
	assert.InDelta(t, 1.0, tx.balances["BTC"], 1e-9)
}

func TestSpotBuyRejectionNamesCheckedCurrency(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 300 // USDT empty, so USD is the balance checked

	order := spotTestOrder(domain.OrderSideBuy)
	s := newSpotStrategy("USDT")

	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	ib := settlement.Rejection.Insufficiency
	require.NotNil(t, ib)
	assert.Equal(t, "USD", ib.Currency)
	assert.InDelta(t, 500.5, ib.Required, 1e-9)
	assert.InDelta(t, 300.0, ib.Available, 1e-9)
	assert.Contains(t, settlement.Rejection.Reason, "USD")
}

func TestSpotFundedPreferredSkipsEquivalentLock(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USDT"] = 1000
	tx.balances["USD"] = 500

	order := spotTestOrder(domain.OrderSideBuy)
	s := newSpotStrategy("USDT")

	_, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"USDT"}, tx.balanceReads)
}

func TestSpotSellCreditsQuoteMinusFee(t *testing.T) {
	tx := newFakeTx()
	tx.balances["BTC"] = 2

	order := spotTestOrder(domain.OrderSideSell)
	s := newSpotStrategy("USDT")

	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.False(t, settlement.Rejected())

	assert.InDelta(t, 1.0, tx.balances["BTC"], 1e-9)
	assert.InDelta(t, 499.5, tx.balances["USDT"], 1e-9)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
}

func TestSpotSellInsufficientBase(t *testing.T) {
	tx := newFakeTx()
	tx.balances["BTC"] = 0.25

	order := spotTestOrder(domain.OrderSideSell)
	s := newSpotStrategy("USDT")

	settlement, err := s.Settle(context.Background(), tx, order, 500)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	ib := settlement.Rejection.Insufficiency
	require.NotNil(t, ib)
	assert.Equal(t, "BTC", ib.Currency)
	assert.InDelta(t, 1.0, ib.Required, 1e-9)
	assert.InDelta(t, 0.25, ib.Available, 1e-9)
}
