package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

// Store abstracts the persistence layer supplying product pricing records.
type Store interface {
	GetProductPricing(ctx context.Context, productID string) (pricing.ProductPricing, error)
	UpdateProductPricing(ctx context.Context, productID string, in PricingInput) (pricing.ProductPricing, error)
}

// PGStore reads and writes product pricing in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetProductPricing loads the base price, order step, and tier table for one product.
func (s *PGStore) GetProductPricing(ctx context.Context, productID string) (pricing.ProductPricing, error) {
	if s == nil || s.Pool == nil {
		return pricing.ProductPricing{}, errors.New("catalog store not configured")
	}
	var info pricing.ProductPricing
	row := s.Pool.QueryRow(ctx,
		`SELECT base_unit_price, order_step, version FROM products WHERE id = $1`, productID)
	if err := row.Scan(&info.BaseUnitPrice, &info.OrderStep, &info.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.ProductPricing{}, ErrNotFound
		}
		return pricing.ProductPricing{}, fmt.Errorf("load product: %w", err)
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT from_qty, discount_bps FROM product_price_tiers WHERE product_id = $1 ORDER BY from_qty`, productID)
	if err != nil {
		return pricing.ProductPricing{}, fmt.Errorf("load price tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tier pricing.Tier
		if err := rows.Scan(&tier.FromQty, &tier.DiscountBps); err != nil {
			return pricing.ProductPricing{}, fmt.Errorf("scan price tier: %w", err)
		}
		info.Tiers = append(info.Tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return pricing.ProductPricing{}, fmt.Errorf("iterate price tiers: %w", err)
	}
	return info, nil
}

// UpdateProductPricing rewrites the product's pricing row and tier table in
// one transaction, bumping the version so cart snapshots can detect the change.
func (s *PGStore) UpdateProductPricing(ctx context.Context, productID string, in PricingInput) (pricing.ProductPricing, error) {
	if s == nil || s.Pool == nil {
		return pricing.ProductPricing{}, errors.New("catalog store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return pricing.ProductPricing{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var version int64
	row := tx.QueryRow(ctx, `
		UPDATE products
		SET base_unit_price = $2, order_step = $3, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version`, productID, in.BaseUnitPrice, in.OrderStep)
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.ProductPricing{}, ErrNotFound
		}
		return pricing.ProductPricing{}, fmt.Errorf("update product: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_price_tiers WHERE product_id = $1`, productID); err != nil {
		return pricing.ProductPricing{}, fmt.Errorf("clear price tiers: %w", err)
	}
	info := pricing.ProductPricing{
		BaseUnitPrice: in.BaseUnitPrice,
		OrderStep:     in.OrderStep,
		Version:       version,
	}
	for _, tier := range in.Tiers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_price_tiers (product_id, from_qty, discount_bps)
			VALUES ($1, $2, $3)`, productID, tier.FromQty, tier.DiscountBps); err != nil {
			return pricing.ProductPricing{}, fmt.Errorf("insert price tier: %w", err)
		}
		info.Tiers = append(info.Tiers, pricing.Tier{FromQty: tier.FromQty, DiscountBps: tier.DiscountBps})
	}
	if err := tx.Commit(ctx); err != nil {
		return pricing.ProductPricing{}, err
	}
	return info, nil
}
