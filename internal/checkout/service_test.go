package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/grosirin/backend-grosir/internal/cart"
	"github.com/grosirin/backend-grosir/internal/order"
	"github.com/grosirin/backend-grosir/internal/pricing"
)

type stubCatalog struct {
	products map[string]pricing.ProductPricing
	fail     bool
}

func (s *stubCatalog) ProductPricing(_ context.Context, productID string) (pricing.ProductPricing, error) {
	if s.fail {
		return pricing.ProductPricing{}, errors.New("catalog unavailable")
	}
	info, ok := s.products[productID]
	if !ok {
		return pricing.ProductPricing{}, errors.New("no such product")
	}
	return info, nil
}

type memOrders struct {
	created []order.Order
}

func (m *memOrders) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	if o.ID == "" {
		o.ID = "ord-1"
	}
	o.Status = "CREATED"
	o.CreatedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.created = append(m.created, o)
	return o, nil
}

func (m *memOrders) GetOrder(_ context.Context, orderID string) (order.Order, error) {
	for _, o := range m.created {
		if o.ID == orderID {
			return o, nil
		}
	}
	return order.Order{}, order.ErrNotFound
}

func scenarioPricing() pricing.ProductPricing {
	return pricing.ProductPricing{
		BaseUnitPrice: 1550,
		OrderStep:     6,
		Tiers: []pricing.Tier{
			{FromQty: 12, DiscountBps: 500},
			{FromQty: 24, DiscountBps: 1000},
		},
		Version: 1,
	}
}

func newCheckout(t *testing.T, minimum pricing.Money) (*Service, *stubCatalog, *memOrders) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := &stubCatalog{products: map[string]pricing.ProductPricing{
		"sku-1": scenarioPricing(),
	}}
	orders := &memOrders{}
	carts := &cart.Service{
		Store:        &cart.Store{R: client, TTL: time.Hour},
		Catalog:      catalog,
		MinimumOrder: minimum,
	}
	svc := &Service{Carts: carts, Catalog: catalog, Orders: orders, Currency: "IDR"}
	return svc, catalog, orders
}

func seedCart(t *testing.T, svc *Service, qty int, promoBps int32) string {
	t.Helper()
	ctx := context.Background()
	c, err := svc.Carts.Create(ctx)
	require.NoError(t, err)
	if qty > 0 {
		_, _, err = svc.Carts.AddItem(ctx, c.ID, "sku-1", qty)
		require.NoError(t, err)
	}
	if promoBps > 0 {
		loaded, err := svc.Carts.Get(ctx, c.ID)
		require.NoError(t, err)
		loaded.ApplyPromo("WELCOME10", promoBps)
		require.NoError(t, svc.Carts.Store.Save(ctx, loaded))
	}
	return c.ID
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	svc, _, orders := newCheckout(t, 30000)
	ctx := context.Background()
	cartID := seedCart(t, svc, 24, 1000)

	created, err := svc.Checkout(ctx, cartID)
	require.NoError(t, err)
	require.Equal(t, "CREATED", created.Status)
	require.Equal(t, pricing.Money(37200), created.Subtotal)
	require.Equal(t, pricing.Money(3720), created.TierDiscount)
	require.Equal(t, pricing.Money(3348), created.PromoDiscount)
	require.Equal(t, pricing.Money(30132), created.GrandTotal)
	require.NotNil(t, created.PromoCode)
	require.Equal(t, "WELCOME10", *created.PromoCode)
	require.Len(t, created.Items, 1)
	require.Equal(t, 24, created.Items[0].Qty)
	require.Equal(t, pricing.Money(1395), created.Items[0].UnitPrice)
	require.Len(t, orders.created, 1)

	after, err := svc.Carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Empty(t, after.Entries)
	require.Empty(t, after.PromoCode)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, orders := newCheckout(t, 0)
	cartID := seedCart(t, svc, 0, 0)

	_, err := svc.Checkout(context.Background(), cartID)
	require.ErrorIs(t, err, ErrCartEmpty)
	require.Empty(t, orders.created)
}

func TestCheckoutMinimumNotMet(t *testing.T) {
	svc, _, orders := newCheckout(t, 30000)
	cartID := seedCart(t, svc, 6, 0)

	_, err := svc.Checkout(context.Background(), cartID)
	require.ErrorIs(t, err, ErrMinimumNotMet)
	require.Empty(t, orders.created)
}

func TestCheckoutPricingChanged(t *testing.T) {
	svc, catalog, orders := newCheckout(t, 0)
	ctx := context.Background()
	cartID := seedCart(t, svc, 24, 0)

	bumped := scenarioPricing()
	bumped.BaseUnitPrice = 1700
	bumped.Version = 2
	catalog.products["sku-1"] = bumped

	_, err := svc.Checkout(ctx, cartID)
	var changed *PricingChangedError
	require.ErrorAs(t, err, &changed)
	require.Equal(t, pricing.Money(1700*24), changed.Totals.Subtotal)
	require.Empty(t, orders.created)

	refreshed, err := svc.Carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Equal(t, int64(2), refreshed.Entries["sku-1"].Pricing.Version)

	created, err := svc.Checkout(ctx, cartID)
	require.NoError(t, err)
	require.Equal(t, changed.Totals.GrandTotal, created.GrandTotal)
	require.Len(t, orders.created, 1)
}

func TestCheckoutVersionBumpWithSameTotalsProceeds(t *testing.T) {
	svc, catalog, orders := newCheckout(t, 0)
	ctx := context.Background()
	cartID := seedCart(t, svc, 24, 0)

	same := scenarioPricing()
	same.Version = 2
	catalog.products["sku-1"] = same

	_, err := svc.Checkout(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, orders.created, 1)
}

func TestCheckoutCatalogUnavailable(t *testing.T) {
	svc, catalog, orders := newCheckout(t, 0)
	ctx := context.Background()
	cartID := seedCart(t, svc, 24, 0)
	catalog.fail = true

	_, err := svc.Checkout(ctx, cartID)
	require.Error(t, err)
	require.Empty(t, orders.created)
}

func TestCheckoutMissingCart(t *testing.T) {
	svc, _, _ := newCheckout(t, 0)
	_, err := svc.Checkout(context.Background(), "nope")
	require.ErrorIs(t, err, cart.ErrNotFound)
}
