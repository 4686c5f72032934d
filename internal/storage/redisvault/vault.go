// Package redisvault implements the transient tier on Redis. Entries are
// JSON blobs with a server-side TTL; single use is enforced with GETDEL so
// that fetch and delete are one atomic command.
package redisvault

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raphaelvls/go-authserver/internal/storage"
)

type Vault struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewVault(client redis.UniversalClient, keyPrefix string) *Vault {
	return &Vault{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (v *Vault) Store(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return v.client.Set(ctx, v.keyPrefix+key, data, ttl).Err()
}

func (v *Vault) Take(ctx context.Context, key string, dest any) error {
	data, err := v.client.GetDel(ctx, v.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

var _ storage.Vault = (*Vault)(nil)
