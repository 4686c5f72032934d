package inmemory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type vaultEntry struct {
	value     []byte
	expiresAt time.Time
}

// Vault keeps TTL-bound single-use entries. Take removes the entry under
// the same lock that reads it, so two concurrent takes of one key cannot
// both succeed.
type Vault struct {
	mu      sync.Mutex
	entries map[string]vaultEntry
}

func NewVault() *Vault {
	return &Vault{
		entries: make(map[string]vaultEntry),
	}
}

func (v *Vault) Store(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries[key] = vaultEntry{
		value:     data,
		expiresAt: timeutil.Now().Add(ttl),
	}
	return nil
}

func (v *Vault) Take(_ context.Context, key string, dest any) error {
	v.mu.Lock()
	entry, ok := v.entries[key]
	if ok {
		delete(v.entries, key)
	}
	v.mu.Unlock()

	if !ok || timeutil.Now().After(entry.expiresAt) {
		return storage.ErrNotFound
	}

	return json.Unmarshal(entry.value, dest)
}

var _ storage.Vault = NewVault()

// Cache is the non-destructive counterpart of Vault used for userinfo
// responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]vaultEntry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]vaultEntry),
	}
}

func (c *Cache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = vaultEntry{
		value:     data,
		expiresAt: timeutil.Now().Add(ttl),
	}
	return nil
}

func (c *Cache) Get(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || timeutil.Now().After(entry.expiresAt) {
		return storage.ErrNotFound
	}

	return json.Unmarshal(entry.value, dest)
}

var _ storage.Cache = NewCache()
