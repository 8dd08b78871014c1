package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/sindri/internal/domain"
)

// DefaultCartTTL is how long an untouched cart survives in redis. Every
// Put refreshes the clock.
const DefaultCartTTL = 7 * 24 * time.Hour

// Redis is a redis-backed Store. Carts are stored as JSON under
// "cart:<ownerKey>" with a sliding TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a redis cart store. A non-positive ttl falls back to
// DefaultCartTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(ownerKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cartstore.redis.get", "failed to read cart")
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, domain.Internal(err, "cartstore.redis.get", "failed to decode cart")
	}
	return &cart, nil
}

func (r *Redis) Put(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return domain.Internal(err, "cartstore.redis.put", "failed to encode cart")
	}

	if err := r.client.Set(ctx, cartKey(cart.OwnerKey), data, r.ttl).Err(); err != nil {
		return domain.Internal(err, "cartstore.redis.put", "failed to write cart")
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, ownerKey string) error {
	if err := r.client.Del(ctx, cartKey(ownerKey)).Err(); err != nil {
		return domain.Internal(err, "cartstore.redis.delete", "failed to delete cart")
	}
	return nil
}

func cartKey(ownerKey string) string {
	return fmt.Sprintf("cart:%s", ownerKey)
}
