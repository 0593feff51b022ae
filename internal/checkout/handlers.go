package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/grosirin/backend-grosir/internal/cart"
	"github.com/grosirin/backend-grosir/internal/catalog"
	"github.com/grosirin/backend-grosir/internal/common"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc *Service
}

// Checkout converts the cart's final snapshot into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload struct {
		CartID string `json:"cartId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.CartID = strings.TrimSpace(payload.CartID)
	if payload.CartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}
	created, err := h.Svc.Checkout(r.Context(), payload.CartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var changed *PricingChangedError
	switch {
	case errors.As(err, &changed):
		common.JSONError(w, http.StatusConflict, "PRICING_CHANGED", "cart pricing changed, review the updated totals", changed.Totals)
	case errors.Is(err, ErrCartEmpty):
		common.JSONError(w, http.StatusBadRequest, "CART_EMPTY", err.Error(), nil)
	case errors.Is(err, ErrMinimumNotMet):
		common.JSONError(w, http.StatusUnprocessableEntity, "MINIMUM_NOT_MET", err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusConflict, "PRODUCT_UNAVAILABLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
