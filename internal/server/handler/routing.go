package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/service"
)

// RoutingHandler serves the A-Book/B-Book routing configuration endpoints.
type RoutingHandler struct {
	routing *service.RoutingService
	logger  *slog.Logger
}

// NewRoutingHandler creates a RoutingHandler for the given routing service.
func NewRoutingHandler(routing *service.RoutingService, logger *slog.Logger) *RoutingHandler {
	return &RoutingHandler{
		routing: routing,
		logger:  logger,
	}
}

// routingConfigPayload is the wire form of the routing configuration.
type routingConfigPayload struct {
	Enabled               bool            `json:"enabled"`
	SizeThresholdUSD      decimal.Decimal `json:"size_threshold_usd"`
	ExposureLimitPerInstr decimal.Decimal `json:"exposure_limit_per_instrument_usd"`
	ExposureLimitTotal    decimal.Decimal `json:"exposure_limit_total_usd"`
	PrimaryProvider       string          `json:"primary_provider"`
	FallbackProvider      string          `json:"fallback_provider"`
}

// GetConfig returns the current routing configuration.
// GET /api/routing/config
func (h *RoutingHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.routing.Config()
	writeJSON(w, http.StatusOK, routingConfigPayload{
		Enabled:               cfg.Enabled,
		SizeThresholdUSD:      cfg.SizeThresholdUSD,
		ExposureLimitPerInstr: cfg.ExposureLimitPerInstr,
		ExposureLimitTotal:    cfg.ExposureLimitTotal,
		PrimaryProvider:       cfg.PrimaryProvider,
		FallbackProvider:      cfg.FallbackProvider,
	})
}

// UpdateConfig replaces the routing thresholds at runtime. Changes take
// effect on the next routing decision; in-flight executions are unaffected.
// The enabled flag is fixed when the executor is constructed, so the handler
// refuses to toggle it.
// PUT /api/routing/config
func (h *RoutingHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var payload routingConfigPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if payload.SizeThresholdUSD.IsNegative() ||
		payload.ExposureLimitPerInstr.IsNegative() ||
		payload.ExposureLimitTotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "thresholds must be non-negative")
		return
	}

	current := h.routing.Config()
	if payload.Enabled != current.Enabled {
		writeError(w, http.StatusBadRequest, "enabled cannot be changed at runtime; restart with the desired routing mode")
		return
	}

	h.routing.UpdateConfig(service.RoutingConfig{
		Enabled:               current.Enabled,
		SizeThresholdUSD:      payload.SizeThresholdUSD,
		ExposureLimitPerInstr: payload.ExposureLimitPerInstr,
		ExposureLimitTotal:    payload.ExposureLimitTotal,
		PrimaryProvider:       payload.PrimaryProvider,
		FallbackProvider:      payload.FallbackProvider,
	})

	h.logger.InfoContext(r.Context(), "routing config updated",
		slog.Bool("enabled", payload.Enabled),
		slog.String("threshold", payload.SizeThresholdUSD.String()),
	)

	h.GetConfig(w, r)
}
