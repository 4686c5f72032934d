package inmemory

import (
	"context"
	"sync"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
)

type ConsentStore struct {
	mu       sync.RWMutex
	consents map[string]*entity.Consent
}

func NewConsentStore() *ConsentStore {
	return &ConsentStore{
		consents: make(map[string]*entity.Consent),
	}
}

func (s *ConsentStore) Create(_ context.Context, consent *entity.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *consent
	s.consents[consent.ID] = &copied
	return nil
}

func (s *ConsentStore) Consent(_ context.Context, id string) (*entity.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	consent, ok := s.consents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := *consent
	return &copied, nil
}

func (s *ConsentStore) ByClientAndUser(_ context.Context, clientID, userID string) (*entity.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, consent := range s.consents {
		if consent.ClientID == clientID && consent.UserID == userID {
			copied := *consent
			return &copied, nil
		}
	}

	return nil, storage.ErrNotFound
}

var _ storage.ConsentStore = NewConsentStore()
