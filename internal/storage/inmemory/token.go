package inmemory

import (
	"context"
	"sync"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*entity.Token
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]*entity.Token),
	}
}

func (s *TokenStore) Create(_ context.Context, token *entity.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *token
	s.tokens[token.ID] = &copied
	return nil
}

func (s *TokenStore) ByAccessDigest(_ context.Context, digest string) (*entity.Token, error) {
	return s.first(func(t *entity.Token) bool {
		return t.AccessTokenDigest == digest
	})
}

func (s *TokenStore) ByRefreshDigest(_ context.Context, digest string) (*entity.Token, error) {
	return s.first(func(t *entity.Token) bool {
		return t.RefreshTokenDigest == digest
	})
}

func (s *TokenStore) Rotate(_ context.Context, id, accessDigest, refreshDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return storage.ErrNotFound
	}

	token.AccessTokenDigest = accessDigest
	token.RefreshTokenDigest = refreshDigest
	token.UpdatedAt = timeutil.Now()
	return nil
}

func (s *TokenStore) first(condition func(*entity.Token) bool) (*entity.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, token := range s.tokens {
		if condition(token) {
			copied := *token
			return &copied, nil
		}
	}

	return nil, storage.ErrNotFound
}

var _ storage.TokenStore = NewTokenStore()
