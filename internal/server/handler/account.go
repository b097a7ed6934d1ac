package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/apexfx/brokerd/internal/service"
)

// MarginService defines the methods that the account handler requires.
type MarginService interface {
	CalculateMargin(ctx context.Context, accountID uuid.UUID) (*service.MarginMetrics, error)
}

// AccountHandler serves account margin HTTP endpoints.
type AccountHandler struct {
	margin MarginService
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given service and logger.
func NewAccountHandler(margin MarginService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		margin: margin,
		logger: logger,
	}
}

// GetMargin returns the live margin metrics for an account.
// GET /api/account/{id}/margin
func (h *AccountHandler) GetMargin(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	metrics, err := h.margin.CalculateMargin(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: margin calculation failed",
			slog.String("account_id", accountID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to calculate margin")
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}
