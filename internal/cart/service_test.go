package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/grosirin/backend-grosir/internal/pricing"
	"github.com/grosirin/backend-grosir/internal/promo"
)

type stubCatalog struct {
	products map[string]pricing.ProductPricing
}

var errNoSuchProduct = errors.New("no such product")

func (s stubCatalog) ProductPricing(_ context.Context, productID string) (pricing.ProductPricing, error) {
	info, ok := s.products[productID]
	if !ok {
		return pricing.ProductPricing{}, errNoSuchProduct
	}
	return info, nil
}

func newTestService(t *testing.T) (*Service, stubCatalog) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := stubCatalog{products: map[string]pricing.ProductPricing{
		"sku-1": fixturePricing(),
	}}
	resolver := promo.StaticResolver{Rules: map[string]promo.Rule{
		"WELCOME10": {Code: "WELCOME10", DiscountBps: 1000},
		"BIGSPEND":  {Code: "BIGSPEND", DiscountBps: 1500, MinSpend: 100000},
	}}
	svc := &Service{
		Store:        &Store{R: client, TTL: time.Hour},
		Catalog:      catalog,
		Promo:        resolver,
		MinimumOrder: 30000,
		Now:          func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, catalog
}

func TestServiceCreateAndReload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)

	loaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, loaded.ID)
	require.Empty(t, loaded.Entries)
	require.Equal(t, pricing.Money(30000), loaded.MinimumOrder)
}

func TestServiceGetMissing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceAddItemPersists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, res, err := svc.AddItem(ctx, c.ID, "sku-1", 10)
	require.NoError(t, err)
	require.Equal(t, 12, res.Qty)
	require.True(t, res.Normalized)

	loaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 12, loaded.Entries["sku-1"].Qty)
}

func TestServiceApplyPromoEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, c.ID, "sku-1", 24)
	require.NoError(t, err)

	updated, err := svc.ApplyPromo(ctx, c.ID, "welcome10")
	require.NoError(t, err)
	require.Equal(t, "WELCOME10", updated.PromoCode)

	totals := updated.Totals()
	require.Equal(t, pricing.Money(3348), totals.PromoDiscount)
	require.Equal(t, pricing.Money(30132), totals.GrandTotal)
	require.True(t, totals.MinimumMet)
}

func TestServiceApplyPromoMinSpendRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, c.ID, "sku-1", 6)
	require.NoError(t, err)

	_, err = svc.ApplyPromo(ctx, c.ID, "BIGSPEND")
	require.ErrorIs(t, err, promo.ErrMinimumSpendUnmet)

	loaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.PromoCode, "failed apply must leave the cart untouched")
}

func TestServiceApplyPromoUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.ApplyPromo(ctx, c.ID, "NOPE")
	require.ErrorIs(t, err, promo.ErrUnknownCode)
}

func TestServiceRefreshPicksUpNewPricing(t *testing.T) {
	svc, catalog := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, c.ID, "sku-1", 12)
	require.NoError(t, err)

	fresh := fixturePricing()
	fresh.BaseUnitPrice = 1600
	fresh.Version = 2
	catalog.products["sku-1"] = fresh

	updated, err := svc.Refresh(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Entries["sku-1"].Pricing.Version)
	require.Equal(t, pricing.Money(1600*12), updated.Totals().Subtotal)
}

func TestServiceSetQuantityZeroRemoves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.AddItem(ctx, c.ID, "sku-1", 6)
	require.NoError(t, err)

	_, res, err := svc.SetQuantity(ctx, c.ID, "sku-1", 0)
	require.NoError(t, err)
	require.True(t, res.Removed)

	loaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Entries)
}

func TestStoreRoundtripAndDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := &Store{R: client, TTL: time.Minute}
	ctx := context.Background()

	c := New("c-42", 5000)
	_, err := c.AddItem("sku-1", fixturePricing(), 12)
	require.NoError(t, err)
	c.ApplyPromo("WELCOME10", 1000)
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Load(ctx, "c-42")
	require.NoError(t, err)
	require.Equal(t, c.Totals(), loaded.Totals())
	require.Equal(t, "WELCOME10", loaded.PromoCode)

	require.NoError(t, store.Delete(ctx, "c-42"))
	_, err = store.Load(ctx, "c-42")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := &Store{R: client, TTL: time.Second}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, New("c-exp", 0)))
	mr.FastForward(2 * time.Second)
	_, err := store.Load(ctx, "c-exp")
	require.ErrorIs(t, err, ErrNotFound)
}
