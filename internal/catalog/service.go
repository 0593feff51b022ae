package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	validator "github.com/go-playground/validator/v10"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

// ErrNotFound indicates the product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// ErrInvalidTierTable is returned when an ingested tier table violates the
// volume-pricing invariants.
var ErrInvalidTierTable = errors.New("invalid tier table")

// TierInput is one breakpoint of an ingested tier table.
type TierInput struct {
	FromQty     int   `json:"fromQty" validate:"required,min=1"`
	DiscountBps int32 `json:"discountBps" validate:"min=1,max=9999"`
}

// PricingInput carries a full pricing rewrite for one product.
type PricingInput struct {
	BaseUnitPrice pricing.Money `json:"baseUnitPrice" validate:"required,min=1"`
	OrderStep     int           `json:"orderStep" validate:"required,min=1"`
	Tiers         []TierInput   `json:"tiers" validate:"dive"`
}

// RepriceEnqueuer schedules background invalidation after a pricing change.
type RepriceEnqueuer interface {
	EnqueueReprice(ctx context.Context, productID string) error
}

// Service orchestrates pricing reads with caching and guards the ingestion
// boundary: the engine itself trusts its inputs, so every invariant is
// enforced here before data reaches storage.
type Service struct {
	store    Store
	cache    *Cache
	validate *validator.Validate
	tasks    RepriceEnqueuer
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store Store
	Cache *Cache
	Tasks RepriceEnqueuer
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tasks:    cfg.Tasks,
	}, nil
}

// ProductPricing returns the current pricing snapshot, read through the cache.
func (s *Service) ProductPricing(ctx context.Context, productID string) (pricing.ProductPricing, error) {
	key := PricingKey(productID)
	var cached pricing.ProductPricing
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	info, err := s.store.GetProductPricing(ctx, productID)
	if err != nil {
		return pricing.ProductPricing{}, err
	}
	_ = s.cache.SetJSON(ctx, key, info)
	return info, nil
}

// UpdatePricing validates and persists a pricing rewrite, drops the cached
// snapshot, and schedules the background reprice task.
func (s *Service) UpdatePricing(ctx context.Context, productID string, in PricingInput) (pricing.ProductPricing, error) {
	if err := s.validate.Struct(in); err != nil {
		return pricing.ProductPricing{}, fmt.Errorf("%w: %v", ErrInvalidTierTable, err)
	}
	if err := validateTierTable(in.Tiers); err != nil {
		return pricing.ProductPricing{}, err
	}
	info, err := s.store.UpdateProductPricing(ctx, productID, in)
	if err != nil {
		return pricing.ProductPricing{}, err
	}
	_ = s.cache.Delete(ctx, PricingKey(productID))
	if s.tasks != nil {
		_ = s.tasks.EnqueueReprice(ctx, productID)
	}
	return info, nil
}

// validateTierTable enforces the table invariants: unique thresholds and a
// non-decreasing discount as quantity grows. Input order does not matter;
// the table is sorted before checking.
func validateTierTable(tiers []TierInput) error {
	if len(tiers) < 2 {
		return nil
	}
	sorted := make([]TierInput, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FromQty < sorted[j].FromQty })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].FromQty == sorted[i-1].FromQty {
			return fmt.Errorf("%w: duplicate threshold %d", ErrInvalidTierTable, sorted[i].FromQty)
		}
		if sorted[i].DiscountBps < sorted[i-1].DiscountBps {
			return fmt.Errorf("%w: discount decreases at threshold %d", ErrInvalidTierTable, sorted[i].FromQty)
		}
	}
	return nil
}
