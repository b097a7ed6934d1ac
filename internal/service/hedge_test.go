package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
)

func TestHedgeOpensSymmetricPair(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 20000

	lo := marginOrder("BTCUSD", 10)
	order := &lo.order
	s := newHedgeStrategy("USD", domain.InstrumentTypeCrypto)

	// 1 BTC at 50000, 10x: notional 50000, fee 50, margin per position
	// 5025, total 10050, liquidations at 45500 / 54500.
	settlement, err := s.Settle(context.Background(), tx, order, 50000)
	require.NoError(t, err)
	require.False(t, settlement.Rejected())

	assert.InDelta(t, 9950.0, tx.balances["USD"], 1e-9)

	var insertArgs []any
	for i, sql := range tx.execSQL {
		if strings.Contains(sql, "INSERT INTO contracts") {
			insertArgs = tx.execArgs[i]
		}
	}
	require.NotNil(t, insertArgs, "hedge pair insert not issued")

	// Long leg carries the result; both legs share pair id, size, entry.
	long := settlement.Contract
	require.NotNil(t, long)
	assert.Equal(t, domain.ContractSideLong, long.Side)
	assert.Equal(t, 1.0, long.LotSize)
	assert.Equal(t, 50000.0, long.EntryPrice)
	assert.Equal(t, 10, long.Leverage)
	assert.InDelta(t, 5000.0, long.MarginUsed, 1e-9)
	assert.InDelta(t, 25.0, long.Commission, 1e-9)
	assert.InDelta(t, 45500.0, long.LiquidationPrice, 1e-6)
	require.NotNil(t, long.PairID)

	shortLiq := insertArgs[17].(float64)
	assert.InDelta(t, 54500.0, shortLiq, 1e-6)
	assert.Equal(t, string(domain.ContractSideShort), insertArgs[16].(string))
	assert.Equal(t, *long.PairID, insertArgs[13].(uuid.UUID))

	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	require.NotNil(t, order.AverageFillPrice)
	assert.Equal(t, 50000.0, *order.AverageFillPrice)
	assert.Contains(t, settlement.Message, "hedged position opened")
}

func TestHedgeRejectsLeverageOverCap(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 1_000_000

	lo := marginOrder("BTCUSD", 100)
	order := &lo.order
	s := newHedgeStrategy("USD", domain.InstrumentTypeCrypto)

	settlement, err := s.Settle(context.Background(), tx, order, 50000)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	assert.Equal(t, "leverage 100x exceeds instrument maximum of 50x", settlement.Rejection.Reason)

	// Rejected before anything was read or written.
	assert.Empty(t, tx.execSQL)
	assert.Empty(t, tx.balanceReads)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestHedgeInsufficientMargin(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 5000

	lo := marginOrder("BTCUSD", 10)
	s := newHedgeStrategy("USD", domain.InstrumentTypeCrypto)

	settlement, err := s.Settle(context.Background(), tx, &lo.order, 50000)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	ib := settlement.Rejection.Insufficiency
	require.NotNil(t, ib)
	assert.Equal(t, "USD", ib.Currency)
	assert.InDelta(t, 10050.0, ib.Required, 1e-9)
	assert.InDelta(t, 5000.0, ib.Available, 1e-9)
	assert.Empty(t, tx.execSQL)
}

func TestHedgeInsufficiencyNamesEquivalentCurrency(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USDT"] = 300 // USD account with only a USDT balance

	lo := marginOrder("BTCUSD", 10)
	s := newHedgeStrategy("USD", domain.InstrumentTypeCrypto)

	settlement, err := s.Settle(context.Background(), tx, &lo.order, 50000)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())

	ib := settlement.Rejection.Insufficiency
	require.NotNil(t, ib)
	assert.Equal(t, "USDT", ib.Currency)
	assert.InDelta(t, 300.0, ib.Available, 1e-9)
}

func TestHedgeForexCapFromConfiguration(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 1_000_000
	tx.forexLeverage["EURUSD"] = 30

	lo := marginOrder("EURUSD", 100)
	s := newHedgeStrategy("USD", domain.InstrumentTypeForex)

	settlement, err := s.Settle(context.Background(), tx, &lo.order, 1.1)
	require.NoError(t, err)
	require.True(t, settlement.Rejected())
	assert.Equal(t, "leverage 100x exceeds instrument maximum of 30x", settlement.Rejection.Reason)
}

func TestHedgeCommodityDefaultCap(t *testing.T) {
	tx := newFakeTx()
	tx.balances["USD"] = 1_000_000

	lo := marginOrder("XAUUSD", 100)
	s := newHedgeStrategy("USD", domain.InstrumentTypeCommodity)

	// Commodities default to 100x, so the order passes the cap check.
	settlement, err := s.Settle(context.Background(), tx, &lo.order, 2000)
	require.NoError(t, err)
	assert.False(t, settlement.Rejected())
}
