package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apexfx/brokerd/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestTriggered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     domain.OrderType
		side    domain.OrderSide
		limit   *float64
		stop    *float64
		current float64
		want    bool
	}{
		{"market always", domain.OrderTypeMarket, domain.OrderSideBuy, nil, nil, 123, true},

		{"buy limit below", domain.OrderTypeLimit, domain.OrderSideBuy, fptr(100), nil, 99, true},
		{"buy limit at", domain.OrderTypeLimit, domain.OrderSideBuy, fptr(100), nil, 100, true},
		{"buy limit above", domain.OrderTypeLimit, domain.OrderSideBuy, fptr(100), nil, 101, false},
		{"sell limit above", domain.OrderTypeLimit, domain.OrderSideSell, fptr(100), nil, 101, true},
		{"sell limit below", domain.OrderTypeLimit, domain.OrderSideSell, fptr(100), nil, 99, false},

		{"buy stop above", domain.OrderTypeStop, domain.OrderSideBuy, nil, fptr(100), 101, true},
		{"buy stop below", domain.OrderTypeStop, domain.OrderSideBuy, nil, fptr(100), 99, false},
		{"sell stop below", domain.OrderTypeStop, domain.OrderSideSell, nil, fptr(100), 99, true},
		{"sell stop above", domain.OrderTypeStop, domain.OrderSideSell, nil, fptr(100), 101, false},

		{"buy stop-limit both hold", domain.OrderTypeStopLimit, domain.OrderSideBuy, fptr(105), fptr(100), 102, true},
		{"buy stop-limit stop not hit", domain.OrderTypeStopLimit, domain.OrderSideBuy, fptr(105), fptr(100), 99, false},
		{"buy stop-limit gapped past limit", domain.OrderTypeStopLimit, domain.OrderSideBuy, fptr(105), fptr(100), 106, false},
		{"sell stop-limit both hold", domain.OrderTypeStopLimit, domain.OrderSideSell, fptr(95), fptr(100), 98, true},
		{"sell stop-limit gapped past limit", domain.OrderTypeStopLimit, domain.OrderSideSell, fptr(95), fptr(100), 94, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := Triggered(tt.typ, tt.side, tt.limit, tt.stop, tt.current)
			assert.Equal(t, tt.want, got, "reason: %s", reason)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestTriggered_MissingPricesAreReasonsNotErrors(t *testing.T) {
	t.Parallel()

	ok, reason := Triggered(domain.OrderTypeLimit, domain.OrderSideBuy, nil, nil, 100)
	assert.False(t, ok)
	assert.Equal(t, "limit price not set", reason)

	ok, reason = Triggered(domain.OrderTypeStop, domain.OrderSideSell, nil, nil, 100)
	assert.False(t, ok)
	assert.Equal(t, "stop price not set", reason)

	ok, reason = Triggered(domain.OrderTypeStopLimit, domain.OrderSideBuy, fptr(100), nil, 100)
	assert.False(t, ok)
	assert.Equal(t, "stop price or limit price not set", reason)
}
