package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Item is one priced order line, frozen at checkout time.
type Item struct {
	ProductID   string        `json:"productId"`
	Qty         int           `json:"qty"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	Total       pricing.Money `json:"total"`
	Savings     pricing.Money `json:"savings"`
	DiscountBps int32         `json:"discountBps"`
}

// Order is the authoritative priced record handed off by checkout.
type Order struct {
	ID            string        `json:"id"`
	CartID        string        `json:"cartId"`
	Status        string        `json:"status"`
	Currency      string        `json:"currency"`
	Subtotal      pricing.Money `json:"subtotal"`
	TierDiscount  pricing.Money `json:"tierDiscount"`
	PromoCode     *string       `json:"promoCode,omitempty"`
	PromoDiscount pricing.Money `json:"promoDiscount"`
	GrandTotal    pricing.Money `json:"grandTotal"`
	Items         []Item        `json:"items"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Store persists and reads orders.
type Store interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
}

// PGStore implements Store on Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// CreateOrder writes the order and its items in one transaction.
func (s *PGStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order store not configured")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = "CREATED"
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (id, cart_id, status, currency, subtotal, tier_discount, promo_code, promo_discount, grand_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		o.ID, o.CartID, o.Status, o.Currency, o.Subtotal, o.TierDiscount, o.PromoCode, o.PromoDiscount, o.GrandTotal)
	if err := row.Scan(&o.CreatedAt); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, unit_price, total, savings, discount_bps)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, item.ProductID, item.Qty, item.UnitPrice, item.Total, item.Savings, item.DiscountBps); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetOrder reads one order with its items.
func (s *PGStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order store not configured")
	}
	var o Order
	row := s.Pool.QueryRow(ctx, `
		SELECT id, cart_id, status, currency, subtotal, tier_discount, promo_code, promo_discount, grand_total, created_at
		FROM orders WHERE id = $1`, orderID)
	if err := row.Scan(&o.ID, &o.CartID, &o.Status, &o.Currency, &o.Subtotal, &o.TierDiscount,
		&o.PromoCode, &o.PromoDiscount, &o.GrandTotal, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("load order: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, qty, unit_price, total, savings, discount_bps
		FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Qty, &item.UnitPrice, &item.Total, &item.Savings, &item.DiscountBps); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterate order items: %w", err)
	}
	return o, nil
}
