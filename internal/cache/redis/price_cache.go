package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apexfx/brokerd/internal/domain"
)

// DefaultPriceStaleness bounds how old a cached price may be before orders
// against it are refused.
const DefaultPriceStaleness = 30 * time.Second

// PriceCache implements domain.PriceCache using Redis hashes. Each symbol's
// price is stored at key "price:{symbol}" with fields "price" and "ts"
// (Unix nanosecond timestamp). Reads past the staleness window return
// domain.ErrStalePrice so execution never fills at a dead quote.
type PriceCache struct {
	rdb       *redis.Client
	staleness time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A
// non-positive staleness falls back to DefaultPriceStaleness.
func NewPriceCache(c *Client, staleness time.Duration) *PriceCache {
	if staleness <= 0 {
		staleness = DefaultPriceStaleness
	}
	return &PriceCache{rdb: c.Underlying(), staleness: staleness}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// SetPrice stores the latest price and timestamp for a symbol.
func (pc *PriceCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	key := priceKey(symbol)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

// GetPrice retrieves the latest trusted price for a symbol. It returns
// domain.ErrStalePrice when no price exists, the stored price is not
// positive, or the quote is older than the staleness window.
func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) (float64, error) {
	key := priceKey(symbol)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, domain.ErrStalePrice
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, domain.ErrStalePrice
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	if price <= 0 {
		return 0, domain.ErrStalePrice
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, domain.ErrStalePrice
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}
	if time.Since(time.Unix(0, tsNano)) > pc.staleness {
		return 0, domain.ErrStalePrice
	}

	return price, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
