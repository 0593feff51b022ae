package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/grosirin/backend-grosir/internal/common"
	"github.com/grosirin/backend-grosir/internal/pricing"
)

// Handler exposes catalog pricing over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a catalog handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// Pricing returns the raw pricing record for one product.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	productID := chi.URLParam(r, "id")
	info, err := h.Svc.ProductPricing(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"productId":     productID,
			"baseUnitPrice": info.BaseUnitPrice,
			"orderStep":     info.OrderStep,
			"tiers":         tiersOrEmpty(info.Tiers),
			"version":       info.Version,
		},
	})
}

// Quote prices a requested quantity for one product: the step-normalized
// quantity, the computed line, and the next-tier upsell hint. A missing or
// non-positive qty quotes a single order step.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	productID := chi.URLParam(r, "id")
	rawQty := strings.TrimSpace(r.URL.Query().Get("qty"))
	requested := 0
	if rawQty != "" {
		parsed, err := strconv.Atoi(rawQty)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "qty must be an integer", nil)
			return
		}
		requested = parsed
	}
	info, err := h.Svc.ProductPricing(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	qty := pricing.NormalizeToStep(requested, info.OrderStep)
	if qty == 0 {
		qty = info.OrderStep
	}
	line := pricing.ComputeLine(info.BaseUnitPrice, info.Tiers, qty)
	payload := map[string]any{
		"productId":    productID,
		"requestedQty": requested,
		"qty":          qty,
		"normalized":   requested > 0 && qty != requested,
		"line":         line,
	}
	if next, ok := pricing.NextTierInfo(qty, info.Tiers); ok {
		payload["nextTier"] = next
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}

// UpdatePricing rewrites a product's base price, order step, and tier table.
func (h *Handler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	productID := chi.URLParam(r, "id")
	var in PricingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	info, err := h.Svc.UpdatePricing(r.Context(), productID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"productId":     productID,
			"baseUnitPrice": info.BaseUnitPrice,
			"orderStep":     info.OrderStep,
			"tiers":         tiersOrEmpty(info.Tiers),
			"version":       info.Version,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrInvalidTierTable):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_TIER_TABLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load pricing", nil)
	}
}

func tiersOrEmpty(tiers []pricing.Tier) []pricing.Tier {
	if tiers == nil {
		return []pricing.Tier{}
	}
	return tiers
}
