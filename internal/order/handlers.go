package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grosirin/backend-grosir/internal/common"
)

// Handler exposes order read-back endpoints.
type Handler struct {
	Store Store
}

// Get returns one order with its priced lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	o, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}
