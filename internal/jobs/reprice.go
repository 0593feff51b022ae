package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/grosirin/backend-grosir/internal/catalog"
)

// TypeCatalogReprice is emitted after a pricing rewrite so every cached
// snapshot derived from the old tier table gets dropped out of band.
const TypeCatalogReprice = "catalog:reprice"

// RepricePayload identifies the product whose pricing changed.
type RepricePayload struct {
	ProductID string `json:"productId"`
}

// Client enqueues background tasks. It satisfies catalog.RepriceEnqueuer.
type Client struct {
	A *asynq.Client
}

// EnqueueReprice schedules cache invalidation for one product.
func (c Client) EnqueueReprice(ctx context.Context, productID string) error {
	if c.A == nil {
		return nil
	}
	payload, err := json.Marshal(RepricePayload{ProductID: productID})
	if err != nil {
		return fmt.Errorf("encode reprice payload: %w", err)
	}
	task := asynq.NewTask(TypeCatalogReprice, payload)
	_, err = c.A.EnqueueContext(ctx, task,
		asynq.Queue("catalog"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	return err
}

// Handlers processes tasks on the worker side.
type Handlers struct {
	Cache  *catalog.Cache
	Logger zerolog.Logger
}

// HandleReprice drops the cached pricing snapshot for the product. A corrupt
// payload is not retried; a cache failure is, with asynq's backoff.
func (h Handlers) HandleReprice(ctx context.Context, t *asynq.Task) error {
	var p RepricePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode reprice payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.ProductID == "" {
		return fmt.Errorf("reprice payload missing product id: %w", asynq.SkipRetry)
	}
	if err := h.Cache.Delete(ctx, catalog.PricingKey(p.ProductID)); err != nil {
		return fmt.Errorf("drop pricing cache for %s: %w", p.ProductID, err)
	}
	h.Logger.Info().Str("product_id", p.ProductID).Msg("pricing cache invalidated")
	return nil
}

// Mux builds the asynq routing table for the worker.
func (h Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCatalogReprice, h.HandleReprice)
	return mux
}
