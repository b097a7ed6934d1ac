// Package worker drives the resting-order book from market-data ticks. Each
// price update refreshes the price cache, sweeps contracts past their
// liquidation price, and executes any pending orders whose trigger the new
// price satisfies.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/engine"
	"github.com/apexfx/brokerd/internal/feed"
	"github.com/apexfx/brokerd/internal/notify"
)

// orderExecutor runs the settlement pipeline for a persisted order.
type orderExecutor interface {
	ExecuteOrder(ctx context.Context, orderID uuid.UUID, executionPrice float64) (*domain.ExecutionResult, error)
}

// liquidationChecker sweeps open contracts for a symbol at the given price.
type liquidationChecker interface {
	CheckSymbol(ctx context.Context, symbol string, currentPrice float64) ([]domain.Contract, error)
}

// EventNotifier delivers operator notifications. May be nil.
type EventNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// defaultQueueSize bounds the tick backlog. Under sustained bursts older
// ticks are dropped; the next tick for a symbol supersedes them anyway.
const defaultQueueSize = 1024

// Processor consumes price updates and reacts to each one in order:
// refresh the cached price, liquidate breached contracts, then evaluate and
// execute triggered pending orders for that symbol.
type Processor struct {
	executor    orderExecutor
	liquidation liquidationChecker
	pending     domain.PendingOrderStore
	orders      domain.OrderStore
	prices      domain.PriceCache
	notifier    EventNotifier
	updates     chan feed.PriceUpdate
	logger      *slog.Logger
}

// NewProcessor creates a price-driven order processor. notifier may be nil.
func NewProcessor(
	executor orderExecutor,
	liquidation liquidationChecker,
	pending domain.PendingOrderStore,
	orders domain.OrderStore,
	prices domain.PriceCache,
	notifier EventNotifier,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		executor:    executor,
		liquidation: liquidation,
		pending:     pending,
		orders:      orders,
		prices:      prices,
		notifier:    notifier,
		updates:     make(chan feed.PriceUpdate, defaultQueueSize),
		logger:      logger.With(slog.String("component", "order_processor")),
	}
}

// HandlePrice enqueues a tick for processing. It never blocks the feed's read
// loop; when the queue is full the tick is dropped and the next one for the
// symbol carries the fresher price.
func (p *Processor) HandlePrice(ctx context.Context, update feed.PriceUpdate) {
	select {
	case p.updates <- update:
	default:
		p.logger.Warn("price queue full, dropping tick",
			slog.String("symbol", update.Symbol),
		)
	}
}

// Run processes queued price updates until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("order processor started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("order processor stopping")
			return ctx.Err()
		case update := <-p.updates:
			p.processTick(ctx, update)
		}
	}
}

// processTick handles one price update end to end. Failures in one stage are
// logged and do not stop the remaining stages; a single bad tick or database
// hiccup must not stall the book.
func (p *Processor) processTick(ctx context.Context, update feed.PriceUpdate) {
	if err := p.prices.SetPrice(ctx, update.Symbol, update.Price, update.At); err != nil {
		p.logger.Error("failed to cache price",
			slog.String("symbol", update.Symbol),
			slog.String("error", err.Error()),
		)
	}

	p.checkLiquidations(ctx, update.Symbol, update.Price)

	resting, err := p.pending.ListPendingBySymbol(ctx, update.Symbol)
	if err != nil {
		p.logger.Error("failed to list pending orders",
			slog.String("symbol", update.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	for i := range resting {
		p.evaluatePending(ctx, &resting[i], update.Price)
	}
}

// checkLiquidations sweeps open contracts and notifies per closed contract.
func (p *Processor) checkLiquidations(ctx context.Context, symbol string, price float64) {
	closed, err := p.liquidation.CheckSymbol(ctx, symbol, price)
	if err != nil {
		p.logger.Error("liquidation sweep failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, c := range closed {
		p.logger.Warn("contract liquidated",
			slog.String("contract", c.ContractNumber),
			slog.String("symbol", c.Symbol),
			slog.Float64("price", price),
		)
		p.notify(ctx, notify.EventLiquidation, "Position Liquidated",
			fmt.Sprintf("contract %s (%s %s) liquidated at %.8f",
				c.ContractNumber, c.Side, c.Symbol, price))
	}
}

// evaluatePending checks one resting order against the current price and
// executes it if triggered. The pending order keeps its order number when it
// materialises as an executable order; the trigger has already been
// satisfied, so the new order is a plain market order.
func (p *Processor) evaluatePending(ctx context.Context, po *domain.PendingOrder, currentPrice float64) {
	triggered, reason := engine.Triggered(po.Type, po.Side, po.LimitPrice, po.StopPrice, currentPrice)
	if !triggered {
		return
	}

	executionPrice := po.ExecutionPrice(currentPrice)

	p.logger.Info("pending order triggered",
		slog.String("order_number", po.OrderNumber),
		slog.String("reason", reason),
		slog.Float64("execution_price", executionPrice),
	)

	order := domain.Order{
		ID:          uuid.New(),
		UserID:      po.UserID,
		AccountID:   po.AccountID,
		OrderNumber: po.OrderNumber,
		Symbol:      po.Symbol,
		Side:        po.Side,
		Type:        domain.OrderTypeMarket,
		Status:      domain.OrderStatusPending,
		ProductType: po.ProductType,
		AmountBase:  po.Quantity,
		Leverage:    po.Leverage,
	}

	if err := p.orders.Create(ctx, order); err != nil {
		p.markFailed(ctx, po, fmt.Sprintf("failed to create order: %v", err))
		return
	}

	result, err := p.executor.ExecuteOrder(ctx, order.ID, executionPrice)
	if err != nil {
		p.markFailed(ctx, po, err.Error())
		return
	}

	if !result.Success {
		// The execution core rolled back and left the order pending;
		// record the rejection on both rows.
		if err := p.orders.MarkRejected(ctx, order.ID, result.Message); err != nil {
			p.logger.Error("failed to mark order rejected",
				slog.String("order_number", po.OrderNumber),
				slog.String("error", err.Error()),
			)
		}
		p.markFailed(ctx, po, result.Message)
		p.notify(ctx, notify.EventOrderRejected, "Order Rejected",
			fmt.Sprintf("order %s (%s %s %.8f %s): %s",
				po.OrderNumber, po.Side, po.Type, po.Quantity, po.Symbol, result.Message))
		return
	}

	if err := p.pending.MarkExecuted(ctx, po.ID, executionPrice); err != nil {
		p.logger.Error("failed to mark pending order executed",
			slog.String("order_number", po.OrderNumber),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Info("pending order executed",
		slog.String("order_number", po.OrderNumber),
		slog.Float64("price", executionPrice),
	)
	p.notify(ctx, notify.EventOrderFilled, "Order Filled",
		fmt.Sprintf("order %s (%s %s %.8f %s) filled at %.8f",
			po.OrderNumber, po.Side, po.Type, po.Quantity, po.Symbol, executionPrice))
}

func (p *Processor) markFailed(ctx context.Context, po *domain.PendingOrder, reason string) {
	p.logger.Error("pending order execution failed",
		slog.String("order_number", po.OrderNumber),
		slog.String("reason", reason),
	)
	if err := p.pending.MarkFailed(ctx, po.ID, reason); err != nil {
		p.logger.Error("failed to mark pending order failed",
			slog.String("order_number", po.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Processor) notify(ctx context.Context, event, title, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, event, title, message); err != nil {
		p.logger.Error("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
