package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/grosirin/backend-grosir/internal/cart"
	"github.com/grosirin/backend-grosir/internal/obs"
	"github.com/grosirin/backend-grosir/internal/order"
)

// ErrCartEmpty is returned when checkout is attempted on an empty cart.
var ErrCartEmpty = errors.New("cart is empty")

// ErrMinimumNotMet is returned when the grand total is below the minimum order amount.
var ErrMinimumNotMet = errors.New("minimum order amount not met")

// PricingChangedError signals that the final revalidation pass found stale
// pricing snapshots whose refresh moved the totals. The cart has already
// been re-saved with fresh data; the caller should present Totals and let
// the customer confirm again.
type PricingChangedError struct {
	Totals cart.Totals
}

func (e *PricingChangedError) Error() string { return "cart pricing changed" }

// Service turns a final cart snapshot into a persisted order. Pricing is
// revalidated against the live catalog on every attempt so an order is
// never priced on outdated tiers.
type Service struct {
	Carts    *cart.Service
	Catalog  cart.Source
	Orders   order.Store
	Currency string
}

// Checkout revalidates, persists the order, and clears the cart.
func (s *Service) Checkout(ctx context.Context, cartID string) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Catalog == nil || s.Orders == nil {
		return order.Order{}, errors.New("checkout service not configured")
	}
	c, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Entries) == 0 {
		s.reject("empty")
		return order.Order{}, ErrCartEmpty
	}

	before := c.Totals()
	stale := false
	for productID := range c.Entries {
		info, err := s.Catalog.ProductPricing(ctx, productID)
		if err != nil {
			s.reject("unavailable")
			return order.Order{}, fmt.Errorf("revalidate pricing for %s: %w", productID, err)
		}
		if c.RefreshPricing(productID, info) {
			stale = true
		}
	}
	totals := c.Totals()
	if stale && totals != before {
		if err := s.Carts.Store.Save(ctx, c); err != nil {
			return order.Order{}, err
		}
		s.reject("pricing_changed")
		return order.Order{}, &PricingChangedError{Totals: totals}
	}
	if !totals.MinimumMet {
		s.reject("minimum")
		return order.Order{}, ErrMinimumNotMet
	}

	o := order.Order{
		CartID:        c.ID,
		Currency:      s.Currency,
		Subtotal:      totals.Subtotal,
		TierDiscount:  totals.TierDiscount,
		PromoDiscount: totals.PromoDiscount,
		GrandTotal:    totals.GrandTotal,
	}
	if c.PromoCode != "" {
		code := c.PromoCode
		o.PromoCode = &code
	}
	for _, line := range c.Lines() {
		o.Items = append(o.Items, order.Item{
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			UnitPrice:   line.Line.UnitPrice,
			Total:       line.Line.Total,
			Savings:     line.Line.Savings,
			DiscountBps: line.Line.DiscountBps,
		})
	}
	created, err := s.Orders.CreateOrder(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	c.Clear()
	if err := s.Carts.Store.Save(ctx, c); err != nil {
		return created, err
	}
	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.Inc()
	}
	return created, nil
}

func (s *Service) reject(reason string) {
	if obs.CheckoutRejectedTotal != nil {
		obs.CheckoutRejectedTotal.WithLabelValues(reason).Inc()
	}
}
