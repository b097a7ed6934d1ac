package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveLeverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero clamps to one", 0, 1},
		{"negative clamps to one", -3, 1},
		{"one stays one", 1, 1},
		{"ten stays ten", 10, 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EffectiveLeverage(tt.requested))
		})
	}
}

func TestHedgeMargin(t *testing.T) {
	t.Parallel()

	// 0.01 base units at 50000 with 0.1% fee: notional 500, fee 0.5.
	plan := HedgeMargin(0.01, 50000, 10)

	assert.InDelta(t, 500.0, plan.Notional, 1e-9)
	assert.InDelta(t, 0.5, plan.Fee, 1e-9)
	assert.Equal(t, 10, plan.Leverage)
	assert.InDelta(t, 50.25, plan.MarginPerPosition, 1e-9)
	assert.InDelta(t, 100.5, plan.TotalMarginRequired, 1e-9)
}

func TestHedgeMargin_FeeSplit(t *testing.T) {
	t.Parallel()

	plan := HedgeMargin(2, 100, 5)

	// Each position carries half the fee as commission; the halves sum back
	// to the full fee.
	half := plan.Fee / 2.0
	assert.InDelta(t, plan.Fee, half+half, 1e-12)
	assert.InDelta(t, plan.Notional/float64(plan.Leverage)+half, plan.MarginPerPosition, 1e-12)
}

func TestLiquidationPrices_Symmetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		entry     float64
		leverage  int
		wantLong  float64
		wantShort float64
	}{
		{"10x at 100", 100, 10, 91, 109},
		{"1x at 100", 100, 1, 10, 190},
		{"50x at 20000", 20000, 50, 19640, 20360},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			long, short := LiquidationPrices(tt.entry, tt.leverage)
			assert.InDelta(t, tt.wantLong, long, 1e-9)
			assert.InDelta(t, tt.wantShort, short, 1e-9)
			assert.Less(t, long, tt.entry)
			assert.Greater(t, short, tt.entry)
			assert.InDelta(t, tt.entry-long, short-tt.entry, 1e-9)
		})
	}
}

func TestHedgeMargin_ClampsLeverage(t *testing.T) {
	t.Parallel()

	plan := HedgeMargin(1, 100, 0)
	assert.Equal(t, 1, plan.Leverage)
	long, short := plan.LongLiquidation, plan.ShortLiquidation
	assert.InDelta(t, 10.0, long, 1e-9)
	assert.InDelta(t, 190.0, short, 1e-9)
}
