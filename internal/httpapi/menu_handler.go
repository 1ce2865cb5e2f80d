package httpapi

import (
	"context"
	"net/http"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
)

type MenuCatalog interface {
	ListItems(ctx context.Context) ([]*domain.MenuItem, error)
}

type MenuHandler struct {
	catalog MenuCatalog
}

func NewMenuHandler(catalog MenuCatalog) *MenuHandler {
	return &MenuHandler{catalog: catalog}
}

func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load menu")
		return
	}
	respondJSON(w, http.StatusOK, items)
}
