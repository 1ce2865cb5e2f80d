package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/checkout"
)

type CheckoutFlow interface {
	Begin(ctx context.Context, sessionID string) (checkout.Snapshot, error)
	State(sessionID string) (checkout.Snapshot, error)
	Retry(sessionID string) (checkout.Snapshot, error)
	Cancel(sessionID string)
}

type CheckoutHandler struct {
	flow CheckoutFlow
}

func NewCheckoutHandler(flow CheckoutFlow) *CheckoutHandler {
	return &CheckoutHandler{flow: flow}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.Begin(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to start checkout")
		return
	}

	respondJSON(w, http.StatusCreated, snap)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.State(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "no checkout in progress")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// POST /api/v1/checkout/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.Retry(sessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrFlowMissing) {
			respondError(w, http.StatusNotFound, "not_found", "no checkout in progress")
			return
		}
		respondError(w, http.StatusConflict, "not_retryable", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	h.flow.Cancel(sessionID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
