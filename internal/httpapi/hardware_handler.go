package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
)

// TapWriter is the status-channel surface the RFID reader bridge writes
// through.
type TapWriter interface {
	PublishTap(ctx context.Context, tagID string) error
	Get(ctx context.Context) (*domain.StatusRecord, error)
}

type HardwareHandler struct {
	taps TapWriter
}

func NewHardwareHandler(taps TapWriter) *HardwareHandler {
	return &HardwareHandler{taps: taps}
}

type TapRequestDTO struct {
	TagID string `json:"tag_id"`
}

// POST /api/v1/hardware/tap
// Called by the reader bridge for every card read. The kiosk never
// talks to the reader directly; this is the only entry point.
func (h *HardwareHandler) Tap(w http.ResponseWriter, r *http.Request) {
	var req TapRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TagID == "" {
		respondError(w, http.StatusBadRequest, "invalid_tag_id", "tag_id is required")
		return
	}

	if err := h.taps.PublishTap(r.Context(), req.TagID); err != nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "failed to publish tap")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// GET /api/v1/hardware/status
// Lets the bridge read back the current mailbox, mainly the message the
// flows write ("registered"/"unregistered") for its own display.
func (h *HardwareHandler) Status(w http.ResponseWriter, r *http.Request) {
	rec, err := h.taps.Get(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "failed to read status")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
