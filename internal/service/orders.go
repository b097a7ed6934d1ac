package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/apexfx/brokerd/internal/domain"
)

// PlaceOrderRequest is a user's trade intent as received from the API.
type PlaceOrderRequest struct {
	UserID      uuid.UUID          `json:"user_id"`
	AccountID   uuid.UUID          `json:"account_id"`
	Symbol      string             `json:"symbol"`
	Side        domain.OrderSide   `json:"side"`
	Type        domain.OrderType   `json:"type"`
	ProductType domain.ProductType `json:"product_type"`
	Quantity    float64            `json:"quantity"`
	LimitPrice  *float64           `json:"limit_price,omitempty"`
	StopPrice   *float64           `json:"stop_price,omitempty"`
	Leverage    int                `json:"leverage"`
}

// PlaceOrderResult reports what happened to a newly placed order. Market
// orders execute inline and carry the final status; trigger orders rest in
// the book with status "pending".
type PlaceOrderResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	FillPrice   *float64  `json:"fill_price,omitempty"`
}

// OrderService accepts, lists, and cancels orders. Market orders are executed
// immediately at the cached market price; limit, stop, and stop-limit orders
// rest in the pending book until the worker triggers them.
type OrderService struct {
	orders      domain.OrderStore
	pending     domain.PendingOrderStore
	instruments domain.InstrumentStore
	prices      domain.PriceCache
	executor    orderExecutor
	logger      *slog.Logger
}

// orderExecutor runs the settlement pipeline for a persisted order.
type orderExecutor interface {
	ExecuteOrder(ctx context.Context, orderID uuid.UUID, executionPrice float64) (*domain.ExecutionResult, error)
}

// NewOrderService creates an OrderService.
func NewOrderService(
	orders domain.OrderStore,
	pending domain.PendingOrderStore,
	instruments domain.InstrumentStore,
	prices domain.PriceCache,
	executor orderExecutor,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		pending:     pending,
		instruments: instruments,
		prices:      prices,
		executor:    executor,
		logger:      logger.With(slog.String("component", "order_service")),
	}
}

// Place validates and accepts a new order. Validation failures return
// ErrInvalidOrder wrapped with the specific reason.
func (s *OrderService) Place(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	if err := s.validate(ctx, &req); err != nil {
		return PlaceOrderResult{}, err
	}

	if req.Type == domain.OrderTypeMarket {
		return s.placeMarket(ctx, req)
	}
	return s.placeResting(ctx, req)
}

// validate checks the request and fills in defaults. It mutates req.
func (s *OrderService) validate(ctx context.Context, req *PlaceOrderRequest) error {
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder)
	}
	switch req.Side {
	case domain.OrderSideBuy, domain.OrderSideSell:
	default:
		return fmt.Errorf("%w: unknown side %q", domain.ErrInvalidOrder, req.Side)
	}
	switch req.Type {
	case domain.OrderTypeMarket:
	case domain.OrderTypeLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 {
			return fmt.Errorf("%w: limit orders require a positive limit_price", domain.ErrInvalidOrder)
		}
	case domain.OrderTypeStop:
		if req.StopPrice == nil || *req.StopPrice <= 0 {
			return fmt.Errorf("%w: stop orders require a positive stop_price", domain.ErrInvalidOrder)
		}
	case domain.OrderTypeStopLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 || req.StopPrice == nil || *req.StopPrice <= 0 {
			return fmt.Errorf("%w: stop-limit orders require positive limit_price and stop_price", domain.ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidOrder, req.Type)
	}
	if req.ProductType == "" {
		req.ProductType = domain.ProductTypeSpot
	}
	if req.Leverage <= 0 {
		req.Leverage = 1
	}
	if req.ProductType == domain.ProductTypeSpot && req.Leverage != 1 {
		return fmt.Errorf("%w: spot orders cannot use leverage", domain.ErrInvalidOrder)
	}

	inst, err := s.instruments.GetBySymbol(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown symbol %q", domain.ErrInvalidOrder, req.Symbol)
		}
		return fmt.Errorf("service: look up instrument: %w", err)
	}
	if !inst.Active {
		return fmt.Errorf("%w: trading suspended for %s", domain.ErrInvalidOrder, req.Symbol)
	}
	return nil
}

// placeMarket persists the order and executes it inline at the cached price.
func (s *OrderService) placeMarket(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	price, err := s.prices.GetPrice(ctx, req.Symbol)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("service: market price for %s: %w", req.Symbol, err)
	}

	order := domain.Order{
		ID:          uuid.New(),
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		OrderNumber: NewOrderNumber(),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        domain.OrderTypeMarket,
		Status:      domain.OrderStatusPending,
		ProductType: req.ProductType,
		AmountBase:  req.Quantity,
		Leverage:    req.Leverage,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("service: create order: %w", err)
	}

	result, err := s.executor.ExecuteOrder(ctx, order.ID, price)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if !result.Success {
		if err := s.orders.MarkRejected(ctx, order.ID, result.Message); err != nil {
			s.logger.Error("failed to mark order rejected",
				slog.String("order_number", order.OrderNumber),
				slog.String("error", err.Error()),
			)
		}
		return PlaceOrderResult{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(domain.OrderStatusRejected),
			Message:     result.Message,
		}, nil
	}

	return PlaceOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(domain.OrderStatusFilled),
		Message:     result.Message,
		FillPrice:   &price,
	}, nil
}

// placeResting persists a trigger order into the pending book.
func (s *OrderService) placeResting(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	po := domain.PendingOrder{
		ID:          uuid.New(),
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		OrderNumber: NewOrderNumber(),
		Symbol:      req.Symbol,
		Type:        req.Type,
		Side:        req.Side,
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
		StopPrice:   req.StopPrice,
		Leverage:    req.Leverage,
		ProductType: req.ProductType,
		Status:      domain.PendingOrderStatusPending,
	}
	if err := s.pending.Create(ctx, po); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("service: create pending order: %w", err)
	}

	s.logger.Info("order resting",
		slog.String("order_number", po.OrderNumber),
		slog.String("symbol", po.Symbol),
		slog.String("type", string(po.Type)),
	)

	return PlaceOrderResult{
		OrderID:     po.ID,
		OrderNumber: po.OrderNumber,
		Status:      string(domain.PendingOrderStatusPending),
	}, nil
}

// ListByAccount returns executed and rejected orders for an account.
func (s *OrderService) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.Order, error) {
	return s.orders.ListByAccount(ctx, accountID, opts)
}

// ListPendingByAccount returns resting orders for an account.
func (s *OrderService) ListPendingByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.PendingOrder, error) {
	return s.pending.ListByAccount(ctx, accountID, opts)
}

// Cancel cancels a resting order. Only pending orders can be cancelled; an
// order that already executed or failed returns ErrNotFound.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.pending.Cancel(ctx, id)
}
