package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed(onPrice PriceHandler) *MarketFeed {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMarketFeed("wss://example.test", []string{"BTCUSD", "XAUUSD"}, onPrice, logger)
}

func TestStreamURL(t *testing.T) {
	f := newTestFeed(nil)
	assert.Equal(t, "wss://example.test/stream?streams=btcusd@trade/xauusd@trade", f.streamURL())
}

func TestHandleMessageDispatchesTrade(t *testing.T) {
	var got []PriceUpdate
	f := newTestFeed(func(ctx context.Context, u PriceUpdate) {
		got = append(got, u)
	})

	raw := []byte(`{"stream":"btcusd@trade","data":{"e":"trade","s":"btcusd","p":"45123.50","T":1700000000000}}`)
	f.handleMessage(context.Background(), raw)

	require.Len(t, got, 1)
	assert.Equal(t, "BTCUSD", got[0].Symbol)
	assert.Equal(t, 45123.50, got[0].Price)
	assert.Equal(t, int64(1700000000000), got[0].At.UnixMilli())
}

func TestHandleMessageSkipsBadPayloads(t *testing.T) {
	var calls int
	f := newTestFeed(func(ctx context.Context, u PriceUpdate) { calls++ })

	for _, raw := range []string{
		`not json`,
		`{"stream":"btcusd@trade"}`,
		`{"stream":"btcusd@trade","data":{"e":"depthUpdate","s":"BTCUSD"}}`,
		`{"stream":"btcusd@trade","data":{"e":"trade","s":"BTCUSD","p":"not-a-number"}}`,
		`{"stream":"btcusd@trade","data":{"e":"trade","s":"BTCUSD","p":"-1"}}`,
		`{"stream":"btcusd@trade","data":{"e":"trade","s":"","p":"100"}}`,
	} {
		f.handleMessage(context.Background(), []byte(raw))
	}

	assert.Zero(t, calls)
}
