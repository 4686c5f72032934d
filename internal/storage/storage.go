// Package storage defines the narrow store interfaces the protocol engine
// depends on. Durable implementations live in mongodb, transient ones in
// redisvault, and inmemory provides both tiers for tests and local runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/raphaelvls/go-authserver/internal/entity"
)

var (
	// ErrNotFound is returned by every lookup that does not match a row or
	// a live vault entry.
	ErrNotFound = errors.New("entity not found")

	// ErrUserAlreadyBound is returned by BindUser when the session already
	// carries a user.
	ErrUserAlreadyBound = errors.New("session already bound to a user")
)

// ClientStore reads registered client metadata. The engine never writes
// clients.
type ClientStore interface {
	// BySlug returns the client with the given public identifier.
	BySlug(ctx context.Context, slug string) (*entity.Client, error)
}

// SessionStore persists in-flight authorizations.
type SessionStore interface {
	Create(ctx context.Context, session *entity.Session) error
	Session(ctx context.Context, id string) (*entity.Session, error)

	// BindUser sets the session's user exactly once. It must be a
	// compare-and-set: it succeeds only while the stored user_id is unset
	// and returns ErrUserAlreadyBound otherwise, even under concurrent
	// callers.
	BindUser(ctx context.Context, id, userID string) error

	// Update applies the enumerated patch fields to the session.
	Update(ctx context.Context, id string, patch entity.SessionPatch) error
}

// ConsentStore persists consent grants.
type ConsentStore interface {
	Create(ctx context.Context, consent *entity.Consent) error
	Consent(ctx context.Context, id string) (*entity.Consent, error)

	// ByClientAndUser returns the consent a user previously granted to a
	// client, or ErrNotFound.
	ByClientAndUser(ctx context.Context, clientID, userID string) (*entity.Consent, error)
}

// TokenStore persists issued token digests.
type TokenStore interface {
	Create(ctx context.Context, token *entity.Token) error
	ByAccessDigest(ctx context.Context, digest string) (*entity.Token, error)
	ByRefreshDigest(ctx context.Context, digest string) (*entity.Token, error)

	// Rotate atomically replaces both digests on the row. Once it returns,
	// the previous refresh token digest must not match any row.
	Rotate(ctx context.Context, id, accessDigest, refreshDigest string) error
}

// Vault is the transient tier for single-use values: pushed authorization
// payloads and authorization codes. Entries expire on their own.
type Vault interface {
	Store(ctx context.Context, key string, value any, ttl time.Duration) error

	// Take fetches and deletes the entry under key as one atomic step. At
	// most one concurrent caller observes the value; all others get
	// ErrNotFound. Expired entries are indistinguishable from absent ones.
	Take(ctx context.Context, key string, dest any) error
}

// Cache is a plain TTL read-through cache (userinfo responses). Reads are
// not destructive.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
}
