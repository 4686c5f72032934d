package redisvault

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raphaelvls/go-authserver/internal/storage"
)

// Cache is the non-destructive TTL cache used for userinfo responses. It
// shares the Redis client with the vault but reads with a plain GET.
type Cache struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewCache(client redis.UniversalClient, keyPrefix string) *Cache {
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

var _ storage.Cache = (*Cache)(nil)
