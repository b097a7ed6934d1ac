package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/engine"
	"github.com/apexfx/brokerd/internal/lp"
)

// routedStrategy hedges an order externally (A-Book): the fill comes from a
// liquidity provider, the route is recorded for reconciliation, and then the
// internal hedge pair is opened at the provider's fill price so the book
// mirrors the external hedge. When no provider can fill, it falls back to
// plain B-Book settlement at the requested price.
type routedStrategy struct {
	hedge     *hedgeStrategy
	providers *lp.ProviderManager
	logger    *slog.Logger
}

func newRoutedStrategy(hedge *hedgeStrategy, providers *lp.ProviderManager, logger *slog.Logger) *routedStrategy {
	return &routedStrategy{
		hedge:     hedge,
		providers: providers,
		logger:    logger,
	}
}

func (r *routedStrategy) Settle(ctx context.Context, tx pgx.Tx, order *domain.Order, executionPrice float64) (domain.Settlement, error) {
	report, venue, err := r.providers.ExecuteWithFailover(ctx, &lp.ExecutionRequest{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  decimal.NewFromFloat(order.AmountBase),
		OrderType: "market",
		ClientID:  order.OrderNumber,
	})
	if err != nil {
		r.logger.Warn("external routing failed, settling internally",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()))
		return r.hedge.Settle(ctx, tx, order, executionPrice)
	}

	fillPrice, _ := report.AveragePrice.Float64()
	fillQty, _ := report.FilledQty.Float64()
	fee, _ := report.Fee.Float64()
	notional := engine.Notional(fillQty, fillPrice)

	_, err = tx.Exec(ctx,
		`INSERT INTO lp_routes (id, order_id, provider, lp_order_id, fill_price, fill_quantity,
		                        fee, status, routed_at, filled_at, created_at)
		 VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())`,
		order.ID, venue, report.LPOrderID, fillPrice, fillQty, fee, report.Status,
	)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("service: record lp route: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET execution_strategy = $1, updated_at = NOW() WHERE id = $2`,
		string(domain.ExecutionStrategyABook), order.ID,
	)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("service: set execution strategy: %w", err)
	}
	order.ExecutionStrategy = domain.ExecutionStrategyABook

	// The internal book always mirrors the external fill.
	settlement, err := r.hedge.Settle(ctx, tx, order, fillPrice)
	if err != nil || settlement.Rejected() {
		return settlement, err
	}

	settlement.Message = fmt.Sprintf("A-Book execution via %s (notional %.2f): %s",
		venue, notional, settlement.Message)
	return settlement, nil
}
