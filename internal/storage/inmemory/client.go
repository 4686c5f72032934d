// Package inmemory implements every store contract with mutex-guarded maps.
// It backs the test suites and single-process deployments.
package inmemory

import (
	"context"
	"sync"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
)

type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*entity.Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{
		clients: make(map[string]*entity.Client),
	}
}

// Save registers a client for lookup. It exists for bootstrap and tests;
// the protocol engine only reads.
func (s *ClientStore) Save(_ context.Context, client *entity.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *client
	s.clients[client.Slug] = &c
	return nil
}

func (s *ClientStore) BySlug(_ context.Context, slug string) (*entity.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[slug]
	if !ok {
		return nil, storage.ErrNotFound
	}

	c := *client
	return &c, nil
}

var _ storage.ClientStore = NewClientStore()
