package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/service"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	Place(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.Order, error)
	ListPendingByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.PendingOrder, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// listOrdersResponse wraps the list orders response.
type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// listPendingResponse wraps the resting-order list response.
type listPendingResponse struct {
	Orders []domain.PendingOrder `json:"orders"`
}

// ListOrders returns orders for an account. With status=pending it returns
// the resting trigger orders instead of executed ones.
// GET /api/orders?account_id=...&status=pending&limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDQuery(w, r)
	if !ok {
		return
	}
	opts := parseListOpts(r)

	if r.URL.Query().Get("status") == "pending" {
		pending, err := h.orders.ListPendingByAccount(r.Context(), accountID, opts)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: list pending orders failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to list orders")
			return
		}
		if pending == nil {
			pending = []domain.PendingOrder{}
		}
		writeJSON(w, http.StatusOK, listPendingResponse{Orders: pending})
		return
	}

	orders, err := h.orders.ListByAccount(r.Context(), accountID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// PlaceOrder accepts a new order from a JSON body. Market orders execute
// inline; trigger orders rest until the market reaches them.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Symbol == "" || req.AccountID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "symbol and account_id are required")
		return
	}

	result, err := h.orders.Place(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrStalePrice):
			writeError(w, http.StatusServiceUnavailable, "no recent market price for symbol")
		case errors.Is(err, domain.ErrOrderLocked):
			writeError(w, http.StatusConflict, "order execution already in flight")
		default:
			h.logger.ErrorContext(r.Context(), "handler: place order failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// CancelOrder cancels a resting order by its ID.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pending order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel order failed",
			slog.String("order_id", id.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "cancelled",
		"order_id": id.String(),
	})
}
