package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/service"
)

type stubOrderService struct {
	placeResult service.PlaceOrderResult
	placeErr    error
	orders      []domain.Order
	pending     []domain.PendingOrder
	cancelErr   error
	cancelled   []uuid.UUID
}

func (s *stubOrderService) Place(ctx context.Context, req service.PlaceOrderRequest) (service.PlaceOrderResult, error) {
	return s.placeResult, s.placeErr
}

func (s *stubOrderService) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.Order, error) {
	return s.orders, nil
}

func (s *stubOrderService) ListPendingByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.PendingOrder, error) {
	return s.pending, nil
}

func (s *stubOrderService) Cancel(ctx context.Context, id uuid.UUID) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func newOrderMux(svc *stubOrderService) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewOrderHandler(svc, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.CancelOrder)
	return mux
}

func TestPlaceOrderEndpoint(t *testing.T) {
	svc := &stubOrderService{placeResult: service.PlaceOrderResult{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-01HXYZ",
		Status:      "filled",
	}}
	mux := newOrderMux(svc)

	body := fmt.Sprintf(`{"account_id":%q,"user_id":%q,"symbol":"BTCUSDT","side":"buy","type":"market","quantity":0.5}`,
		uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var res service.PlaceOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ORD-01HXYZ", res.OrderNumber)
}

func TestPlaceOrderEndpointValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed json", `{`, nil, http.StatusBadRequest},
		{"missing symbol", fmt.Sprintf(`{"account_id":%q}`, uuid.New()), nil, http.StatusBadRequest},
		{"invalid order", fmt.Sprintf(`{"account_id":%q,"symbol":"BTCUSDT"}`, uuid.New()),
			fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder), http.StatusBadRequest},
		{"stale price", fmt.Sprintf(`{"account_id":%q,"symbol":"BTCUSDT"}`, uuid.New()),
			fmt.Errorf("service: market price: %w", domain.ErrStalePrice), http.StatusServiceUnavailable},
		{"locked", fmt.Sprintf(`{"account_id":%q,"symbol":"BTCUSDT"}`, uuid.New()),
			domain.ErrOrderLocked, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newOrderMux(&stubOrderService{placeErr: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListOrdersEndpoint(t *testing.T) {
	svc := &stubOrderService{orders: []domain.Order{{OrderNumber: "ORD-1"}}}
	mux := newOrderMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders?account_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD-1")
}

func TestListOrdersRequiresAccountID(t *testing.T) {
	mux := newOrderMux(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrderEndpoint(t *testing.T) {
	svc := &stubOrderService{}
	mux := newOrderMux(svc)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/orders/"+id.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, svc.cancelled)
}

func TestCancelOrderNotFound(t *testing.T) {
	mux := newOrderMux(&stubOrderService{cancelErr: domain.ErrNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
