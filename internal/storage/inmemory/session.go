package inmemory

import (
	"context"
	"sync"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entity.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *SessionStore) Session(_ context.Context, id string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := *session
	return &copied, nil
}

func (s *SessionStore) BindUser(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}

	if session.UserID != "" {
		return storage.ErrUserAlreadyBound
	}

	session.UserID = userID
	session.UpdatedAt = timeutil.Now()
	return nil
}

func (s *SessionStore) Update(_ context.Context, id string, patch entity.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}

	if patch.ConsentGrantedAt != nil {
		session.ConsentGrantedAt = patch.ConsentGrantedAt
	}
	if patch.Scopes != nil {
		session.Scopes = patch.Scopes
	}
	session.UpdatedAt = timeutil.Now()
	return nil
}

var _ storage.SessionStore = NewSessionStore()
