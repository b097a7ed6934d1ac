package handler

import (
	"log/slog"
	"net/http"

	"github.com/apexfx/brokerd/internal/domain"
)

// PositionHandler serves open-position HTTP endpoints.
type PositionHandler struct {
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given store and logger.
func NewPositionHandler(positions domain.PositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []domain.Contract `json:"positions"`
}

// ListPositions returns all open contracts for an account.
// GET /api/positions?account_id=...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDQuery(w, r)
	if !ok {
		return
	}

	positions, err := h.positions.ListOpenByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("account_id", accountID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	if positions == nil {
		positions = []domain.Contract{}
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}
