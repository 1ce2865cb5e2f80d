package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/register"
)

type RegisterFlow interface {
	Submit(ctx context.Context, sessionID, name, phone string) (register.Snapshot, error)
	State(sessionID string) register.Snapshot
	Retry(ctx context.Context, sessionID string) (register.Snapshot, error)
	Finish(ctx context.Context, sessionID string)
}

type RegisterHandler struct {
	flow RegisterFlow
}

func NewRegisterHandler(flow RegisterFlow) *RegisterHandler {
	return &RegisterHandler{flow: flow}
}

type RegisterRequestDTO struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// POST /api/v1/register
func (h *RegisterHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	snap, err := h.flow.Submit(r.Context(), sessionID, req.Name, req.PhoneNumber)
	if err != nil {
		var vErr *register.ValidationError
		if errors.As(err, &vErr) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": vErr.Message,
				"code":  "validation_error",
				"field": vErr.Field,
			})
			return
		}
		respondError(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, snap)
}

// GET /api/v1/register
func (h *RegisterHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	respondJSON(w, http.StatusOK, h.flow.State(sessionID))
}

// POST /api/v1/register/retry
func (h *RegisterHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	snap, err := h.flow.Retry(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, register.ErrFlowMissing) {
			respondError(w, http.StatusNotFound, "not_found", "no registration in progress")
			return
		}
		respondError(w, http.StatusConflict, "not_retryable", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// POST /api/v1/register/finish
func (h *RegisterHandler) Finish(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing kiosk session")
		return
	}

	h.flow.Finish(r.Context(), sessionID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "done"})
}
