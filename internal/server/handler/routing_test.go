package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexfx/brokerd/internal/service"
)

func newRoutingMux(enabled bool) (*http.ServeMux, *service.RoutingService) {
	routing := service.NewRoutingService(nil, service.RoutingConfig{
		Enabled:          enabled,
		SizeThresholdUSD: decimal.NewFromInt(10000),
		PrimaryProvider:  "mock-primary",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRoutingHandler(routing, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/routing/config", h.GetConfig)
	mux.HandleFunc("PUT /api/routing/config", h.UpdateConfig)
	return mux, routing
}

func TestUpdateRoutingConfigThresholds(t *testing.T) {
	mux, routing := newRoutingMux(true)

	body := `{"enabled":true,"size_threshold_usd":"25000","exposure_limit_per_instrument_usd":"100000","exposure_limit_total_usd":"500000"}`
	req := httptest.NewRequest(http.MethodPut, "/api/routing/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cfg := routing.Config()
	assert.True(t, cfg.SizeThresholdUSD.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "mock-primary", cfg.PrimaryProvider)
}

func TestUpdateRoutingConfigRejectsNegativeThreshold(t *testing.T) {
	mux, _ := newRoutingMux(true)

	body := `{"enabled":true,"size_threshold_usd":"-1"}`
	req := httptest.NewRequest(http.MethodPut, "/api/routing/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRoutingConfigCannotToggleEnabled(t *testing.T) {
	mux, routing := newRoutingMux(false)

	body := `{"enabled":true,"size_threshold_usd":"25000"}`
	req := httptest.NewRequest(http.MethodPut, "/api/routing/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload["error"], "enabled cannot be changed at runtime")

	// The stored configuration is untouched.
	cfg := routing.Config()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.SizeThresholdUSD.Equal(decimal.NewFromInt(10000)))
}
