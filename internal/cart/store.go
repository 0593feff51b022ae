package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists cart snapshots in Redis between mutations. Each cart is one
// JSON value under a session-scoped key with a sliding TTL.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func cartKey(id string) string {
	return "cart:" + id
}

// Save writes the cart snapshot and refreshes its TTL.
func (s *Store) Save(ctx context.Context, c *Cart) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	if c == nil || c.ID == "" {
		return errors.New("cart id required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.R.Set(ctx, cartKey(c.ID), data, s.ttl()).Err()
}

// Load reads a cart snapshot. Missing or expired carts yield ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*Cart, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("cart store not configured")
	}
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Entries == nil {
		c.Entries = map[string]Entry{}
	}
	return &c, nil
}

// Delete removes the cart snapshot entirely. Deleting an absent cart is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	return s.R.Del(ctx, cartKey(id)).Err()
}
