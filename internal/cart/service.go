package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grosirin/backend-grosir/internal/obs"
	"github.com/grosirin/backend-grosir/internal/pricing"
	"github.com/grosirin/backend-grosir/internal/promo"
)

// Source supplies the current catalog pricing snapshot for a product.
type Source interface {
	ProductPricing(ctx context.Context, productID string) (pricing.ProductPricing, error)
}

// Service executes cart commands against the session store. Every command
// loads the latest committed snapshot, applies one mutation, and saves, so
// rapid repeated triggers never clobber an unrelated entry.
type Service struct {
	Store        *Store
	Catalog      Source
	Promo        promo.Resolver
	MinimumOrder pricing.Money
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens an empty cart for a new session.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	c := New(uuid.NewString(), s.MinimumOrder)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a cart without mutating it.
func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	return s.Store.Load(ctx, cartID)
}

// AddItem inserts a product priced against the current catalog snapshot.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, requestedQty int) (*Cart, MutationResult, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, MutationResult{}, err
	}
	info, err := s.Catalog.ProductPricing(ctx, productID)
	if err != nil {
		return nil, MutationResult{}, fmt.Errorf("load product pricing: %w", err)
	}
	s.refreshEntries(ctx, c)
	res, err := c.AddItem(productID, info, requestedQty)
	if err != nil {
		return nil, MutationResult{}, err
	}
	s.noteNormalized(res)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, MutationResult{}, err
	}
	return c, res, nil
}

// SetQuantity normalizes and stores a new quantity; zero removes the entry.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, requestedQty int) (*Cart, MutationResult, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, MutationResult{}, err
	}
	s.refreshEntries(ctx, c)
	res, err := c.SetQuantity(productID, requestedQty)
	if err != nil {
		return nil, MutationResult{}, err
	}
	s.noteNormalized(res)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, MutationResult{}, err
	}
	return c, res, nil
}

// RemoveItem drops the entry unconditionally; removing an absent item is a no-op.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.refreshEntries(ctx, c)
	c.RemoveItem(productID)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyPromo resolves the code and attaches it when valid for the cart's
// current post-tier total. Failures leave the cart untouched.
func (s *Service) ApplyPromo(ctx context.Context, cartID, code string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if s.Promo == nil {
		return nil, promo.ErrUnknownCode
	}
	s.refreshEntries(ctx, c)
	rule, err := s.Promo.Resolve(ctx, code)
	if err != nil {
		s.notePromo("rejected")
		return nil, err
	}
	totals := c.Totals()
	preCode := totals.Subtotal - totals.TierDiscount
	if err := rule.Validate(s.now(), preCode); err != nil {
		s.notePromo("rejected")
		return nil, err
	}
	c.ApplyPromo(rule.Code, rule.DiscountBps)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.notePromo("applied")
	return c, nil
}

// ClearPromo resets the promotional fields.
func (s *Service) ClearPromo(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	c.ClearPromo()
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart, discarding entries and promotional code but
// keeping the session alive.
func (s *Service) Clear(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh re-snapshots every entry against the catalog and persists the
// result. Fetch failures keep the previous snapshot; checkout performs the
// strict validation pass.
func (s *Service) Refresh(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.refreshEntries(ctx, c)
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) refreshEntries(ctx context.Context, c *Cart) {
	if s.Catalog == nil {
		return
	}
	for productID := range c.Entries {
		info, err := s.Catalog.ProductPricing(ctx, productID)
		if err != nil {
			continue
		}
		if c.RefreshPricing(productID, info) {
			s.noteReprice("stale")
		} else {
			s.noteReprice("fresh")
		}
	}
}

func (s *Service) noteNormalized(res MutationResult) {
	if res.Normalized && obs.QuantityNormalizedTotal != nil {
		obs.QuantityNormalizedTotal.Inc()
	}
}

func (s *Service) notePromo(result string) {
	if obs.PromoApplyTotal != nil {
		obs.PromoApplyTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) noteReprice(result string) {
	if obs.CartRepriceTotal != nil {
		obs.CartRepriceTotal.WithLabelValues(result).Inc()
	}
}
