package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
)

// RoutingConfig holds the thresholds behind A-Book/B-Book decisions. All
// amounts are USD notionals.
type RoutingConfig struct {
	Enabled               bool
	SizeThresholdUSD      decimal.Decimal
	ExposureLimitPerInstr decimal.Decimal
	ExposureLimitTotal    decimal.Decimal
	PrimaryProvider       string
	FallbackProvider      string
}

// RoutingDecision is the outcome of one A-Book/B-Book evaluation.
type RoutingDecision struct {
	Strategy  domain.ExecutionStrategy
	Reason    string
	RouteToLP bool
	Notional  decimal.Decimal
}

// RoutingService decides whether a leveraged order stays on the internal
// book or routes to an external venue. The configuration is injected at
// construction and may be updated at runtime through UpdateConfig.
type RoutingService struct {
	positions domain.PositionStore

	mu  sync.RWMutex
	cfg RoutingConfig
}

// NewRoutingService creates a routing service with the given thresholds.
func NewRoutingService(positions domain.PositionStore, cfg RoutingConfig) *RoutingService {
	return &RoutingService{positions: positions, cfg: cfg}
}

// Config returns a copy of the current configuration.
func (rs *RoutingService) Config() RoutingConfig {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.cfg
}

// UpdateConfig replaces the thresholds. Provider names are kept when the
// update leaves them empty.
func (rs *RoutingService) UpdateConfig(cfg RoutingConfig) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if cfg.PrimaryProvider == "" {
		cfg.PrimaryProvider = rs.cfg.PrimaryProvider
	}
	if cfg.FallbackProvider == "" {
		cfg.FallbackProvider = rs.cfg.FallbackProvider
	}
	rs.cfg = cfg
}

func bBook(reason string, notional decimal.Decimal) *RoutingDecision {
	return &RoutingDecision{
		Strategy: domain.ExecutionStrategyBBook,
		Reason:   reason,
		Notional: notional,
	}
}

func aBook(reason string, notional decimal.Decimal) *RoutingDecision {
	return &RoutingDecision{
		Strategy:  domain.ExecutionStrategyABook,
		Reason:    reason,
		RouteToLP: true,
		Notional:  notional,
	}
}

// ShouldRouteToLP evaluates size and exposure limits for one order. Exposure
// read failures produce a B-Book decision rather than an error so execution
// never stalls on a reporting query.
func (rs *RoutingService) ShouldRouteToLP(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*RoutingDecision, error) {
	cfg := rs.Config()
	notional := quantity.Mul(price)

	if !cfg.Enabled {
		return bBook("LP routing is disabled", notional), nil
	}

	if notional.GreaterThan(cfg.SizeThresholdUSD) {
		return aBook(fmt.Sprintf("order notional ($%s) exceeds threshold ($%s)",
			notional.StringFixed(2), cfg.SizeThresholdUSD.StringFixed(2)), notional), nil
	}

	exposureChange := notional
	if side == domain.OrderSideSell {
		exposureChange = notional.Neg()
	}

	netExposure, err := rs.positions.NetExposure(ctx, symbol)
	if err != nil {
		return bBook(fmt.Sprintf("failed to determine exposure: %v", err), notional), nil
	}

	newExposure := netExposure.Add(exposureChange).Abs()
	if newExposure.GreaterThan(cfg.ExposureLimitPerInstr) {
		return aBook(fmt.Sprintf("new exposure ($%s) would exceed per-instrument limit ($%s)",
			newExposure.StringFixed(2), cfg.ExposureLimitPerInstr.StringFixed(2)), notional), nil
	}

	totalExposure, err := rs.positions.TotalNetExposure(ctx)
	if err != nil {
		return bBook(fmt.Sprintf("failed to determine total exposure: %v", err), notional), nil
	}

	newTotal := totalExposure.Add(exposureChange).Abs()
	if newTotal.GreaterThan(cfg.ExposureLimitTotal) {
		return aBook(fmt.Sprintf("new total exposure ($%s) would exceed limit ($%s)",
			newTotal.StringFixed(2), cfg.ExposureLimitTotal.StringFixed(2)), notional), nil
	}

	return bBook("order size and exposure within internal limits", notional), nil
}
