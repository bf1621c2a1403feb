package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
)

const identityKeyPrefix = "user_cache:"

// RedisIdentityCache stores verified identities under user_cache:<credential>.
type RedisIdentityCache struct {
	client redis.Cmdable
}

var _ interfaces.IIdentityCache = (*RedisIdentityCache)(nil)

func NewRedisIdentityCache(client redis.Cmdable) *RedisIdentityCache {
	return &RedisIdentityCache{client: client}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisIdentityCache) Get(ctx context.Context, credential string) (entities.Identity, bool, error) {
	raw, err := c.client.Get(ctx, identityKeyPrefix+credential).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.Identity{}, false, nil
	}
	if err != nil {
		return entities.Identity{}, false, err
	}
	var identity entities.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return entities.Identity{}, false, fmt.Errorf("decode cached identity: %w", err)
	}
	return identity, true, nil
}

func (c *RedisIdentityCache) Set(ctx context.Context, credential string, identity entities.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, identityKeyPrefix+credential, raw, ttl).Err()
}
