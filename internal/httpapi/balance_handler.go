package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/balance"
)

type BalanceFlow interface {
	Begin(ctx context.Context, sessionID string) (balance.Snapshot, error)
	State(sessionID string) (balance.Snapshot, error)
	End(ctx context.Context, sessionID string)
}

type BalanceHandler struct {
	flow BalanceFlow
}

func NewBalanceHandler(flow BalanceFlow) *BalanceHandler {
	return &BalanceHandler{flow: flow}
}

// POST /api/v1/balance
func (h *BalanceHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.Begin(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to start balance check")
		return
	}

	respondJSON(w, http.StatusCreated, snap)
}

// GET /api/v1/balance
func (h *BalanceHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.State(sessionID)
	if err != nil {
		if errors.Is(err, balance.ErrFlowMissing) {
			respondError(w, http.StatusNotFound, "not_found", "no balance check in progress")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read state")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// DELETE /api/v1/balance
func (h *BalanceHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	h.flow.End(r.Context(), sessionID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "done"})
}
