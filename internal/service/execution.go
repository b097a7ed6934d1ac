package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/lp"
)

// routingDecider answers the A-Book/B-Book question for one order.
type routingDecider interface {
	ShouldRouteToLP(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*RoutingDecision, error)
}

// Executor runs order execution end to end: it locks the order row, selects
// a settlement strategy, and settles inside a single transaction. Soft
// failures roll the transaction back and leave the order row pending; the
// caller decides whether to mark it rejected.
type Executor struct {
	pool           *pgxpool.Pool
	routing        routingDecider
	routingEnabled bool
	providers      *lp.ProviderManager
	audit          domain.AuditStore
	logger         *slog.Logger
}

// ExecutorConfig wires the executor's dependencies. RoutingEnabled is fixed
// at construction; a disabled executor never consults the routing service.
type ExecutorConfig struct {
	Pool           *pgxpool.Pool
	Routing        routingDecider
	RoutingEnabled bool
	Providers      *lp.ProviderManager
	Audit          domain.AuditStore
	Logger         *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		pool:           cfg.Pool,
		routing:        cfg.Routing,
		routingEnabled: cfg.RoutingEnabled,
		providers:      cfg.Providers,
		audit:          cfg.Audit,
		logger:         cfg.Logger.With(slog.String("component", "executor")),
	}
}

// lockedOrder is the order row plus the joined account and instrument fields
// the strategies need.
type lockedOrder struct {
	order           domain.Order
	accountCurrency string
	quoteCurrency   string
	instrumentType  domain.InstrumentType
}

// ExecuteOrder executes one pending order at the given price. The returned
// error is reserved for hard failures (lock contention, I/O, commit); soft
// rejections come back as a result with Success=false and the transaction
// rolled back.
func (e *Executor) ExecuteOrder(ctx context.Context, orderID uuid.UUID, executionPrice float64) (*domain.ExecutionResult, error) {
	if executionPrice <= 0 {
		return nil, fmt.Errorf("service: execute order %s: non-positive price %.8f", orderID, executionPrice)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: begin execution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	lo, err := e.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	order := lo.order

	if order.Status != domain.OrderStatusPending {
		result := &domain.ExecutionResult{
			Order:   order,
			Message: fmt.Sprintf("order is not pending (current status: %s)", order.Status),
		}
		e.logOutcome(ctx, result)
		return result, nil
	}

	strategy := e.selectStrategy(ctx, lo, executionPrice)

	settlement, err := strategy.Settle(ctx, tx, &order, executionPrice)
	if err != nil {
		return nil, err
	}

	if settlement.Rejected() {
		// Rollback via defer; the order row stays pending.
		result := &domain.ExecutionResult{
			Order:     order,
			Message:   settlement.Rejection.Reason,
			Rejection: settlement.Rejection,
		}
		e.logOutcome(ctx, result)
		return result, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("service: commit execution tx: %w", err)
	}

	result := &domain.ExecutionResult{
		Order:    order,
		Contract: settlement.Contract,
		Success:  true,
		Message:  settlement.Message,
	}
	e.logOutcome(ctx, result)
	return result, nil
}

// lockOrder fetches the order with its account currency and instrument
// metadata, taking the row lock without waiting. A held lock maps to
// domain.ErrOrderLocked so callers can treat the order as already in flight.
func (e *Executor) lockOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*lockedOrder, error) {
	var lo lockedOrder
	var side, orderType, status, productType, strategy, instrumentType string

	err := tx.QueryRow(ctx,
		`SELECT o.id, o.user_id, o.account_id, o.order_number, o.symbol, o.side,
		        o.order_type, o.status, o.product_type, o.execution_strategy,
		        o.amount_base, o.limit_price, o.stop_price, o.leverage,
		        o.filled_amount, o.average_fill_price, o.pair_id, o.created_at, o.updated_at,
		        a.currency, i.quote_currency, i.instrument_type
		 FROM orders o
		 JOIN accounts a ON o.account_id = a.id
		 JOIN instruments i ON o.symbol = i.symbol
		 WHERE o.id = $1
		 FOR UPDATE OF o NOWAIT`,
		orderID,
	).Scan(
		&lo.order.ID, &lo.order.UserID, &lo.order.AccountID, &lo.order.OrderNumber,
		&lo.order.Symbol, &side, &orderType, &status, &productType, &strategy,
		&lo.order.AmountBase, &lo.order.LimitPrice, &lo.order.StopPrice, &lo.order.Leverage,
		&lo.order.FilledAmount, &lo.order.AverageFillPrice, &lo.order.PairID,
		&lo.order.CreatedAt, &lo.order.UpdatedAt,
		&lo.accountCurrency, &lo.quoteCurrency, &instrumentType,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			return nil, fmt.Errorf("service: order %s: %w", orderID, domain.ErrOrderLocked)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service: order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("service: fetch order %s: %w", orderID, err)
	}

	lo.order.Side = domain.OrderSide(side)
	lo.order.Type = domain.OrderType(orderType)
	lo.order.Status = domain.OrderStatus(status)
	lo.order.ProductType = domain.ProductType(productType)
	lo.order.ExecutionStrategy = domain.ExecutionStrategy(strategy)
	lo.instrumentType = domain.InstrumentType(instrumentType)
	return &lo, nil
}

// selectStrategy picks the settlement path. Spot orders settle as balance
// moves; margin orders hedge internally unless routing sends them to an
// external venue. A routing decision failure falls back to the internal
// book.
func (e *Executor) selectStrategy(ctx context.Context, lo *lockedOrder, executionPrice float64) SettlementStrategy {
	if lo.order.ProductType == domain.ProductTypeSpot {
		return newSpotStrategy(lo.quoteCurrency)
	}

	hedge := newHedgeStrategy(lo.accountCurrency, lo.instrumentType)
	if !e.routingEnabled || e.routing == nil {
		return hedge
	}

	decision, err := e.routing.ShouldRouteToLP(ctx,
		lo.order.Symbol, lo.order.Side,
		decimal.NewFromFloat(lo.order.AmountBase),
		decimal.NewFromFloat(executionPrice),
	)
	if err != nil {
		e.logger.Warn("routing decision failed, settling internally",
			slog.String("order_number", lo.order.OrderNumber),
			slog.String("error", err.Error()))
		return hedge
	}
	if !decision.RouteToLP {
		e.logger.Debug("settling internally",
			slog.String("order_number", lo.order.OrderNumber),
			slog.String("reason", decision.Reason))
		return hedge
	}

	e.logger.Info("routing order to external venue",
		slog.String("order_number", lo.order.OrderNumber),
		slog.String("reason", decision.Reason))
	return newRoutedStrategy(hedge, e.providers, e.logger)
}

// logOutcome writes the audit line and a structured log for every execution
// outcome. Audit failures are logged, never propagated.
func (e *Executor) logOutcome(ctx context.Context, result *domain.ExecutionResult) {
	outcome := domain.AuditOutcomeRejected
	if result.Success {
		outcome = domain.AuditOutcomeFilled
	}

	if e.audit != nil {
		entry := domain.AuditEntry{
			ID:          uuid.New(),
			OrderID:     result.Order.ID,
			OrderNumber: result.Order.OrderNumber,
			Outcome:     outcome,
			Message:     result.Message,
			CreatedAt:   time.Now().UTC(),
		}
		if err := e.audit.Insert(ctx, entry); err != nil {
			e.logger.Error("audit write failed",
				slog.String("order_number", result.Order.OrderNumber),
				slog.String("error", err.Error()))
		}
	}

	if result.Success {
		e.logger.Info("order executed",
			slog.String("order_number", result.Order.OrderNumber),
			slog.String("message", result.Message))
		return
	}
	e.logger.Info("order not executed",
		slog.String("order_number", result.Order.OrderNumber),
		slog.String("message", result.Message))
}
