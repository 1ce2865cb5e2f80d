package httpapi

import (
	"context"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ReceiptLister interface {
	ListByUser(ctx context.Context, tagID string) ([]*domain.Receipt, error)
}

type ReceiptsHandler struct {
	receipts ReceiptLister
}

func NewReceiptsHandler(receipts ReceiptLister) *ReceiptsHandler {
	return &ReceiptsHandler{receipts: receipts}
}

// GET /api/v1/receipts/{tag_id}
func (h *ReceiptsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	tagID := chi.URLParam(r, "tag_id")
	if tagID == "" {
		respondError(w, http.StatusBadRequest, "invalid_tag_id", "tag_id is required")
		return
	}

	list, err := h.receipts.ListByUser(r.Context(), tagID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load receipts")
		return
	}
	if list == nil {
		list = []*domain.Receipt{}
	}

	respondJSON(w, http.StatusOK, list)
}
