// Package entity holds the data model shared by the protocol engine and the
// storage implementations. Rows are mutated only through the named store
// transitions, never by ad-hoc multi-field writes.
package entity

import (
	"time"

	"github.com/raphaelvls/go-authserver/internal/hashutil"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Client is the durable metadata of a registered application. It is
// read-only to the protocol engine.
type Client struct {
	ID string `json:"id" bson:"_id"`
	// Name is the public display name shown on the consent page.
	Name string `json:"name" bson:"name"`
	// Slug is the public client identifier presented as client_id.
	Slug string `json:"slug" bson:"slug"`
	// HashedSecret is the bcrypt hash of the client secret. The raw secret
	// is never stored.
	HashedSecret    string    `json:"hashed_secret" bson:"hashed_secret"`
	RedirectURIs    []string  `json:"redirect_uris" bson:"redirect_uris"`
	AllowedScopes   []string  `json:"allowed_scopes" bson:"allowed_scopes"`
	MandatoryScopes []string  `json:"mandatory_scopes" bson:"mandatory_scopes"`
	Logos           []string  `json:"logos" bson:"logos"`
	Status          Status    `json:"status" bson:"status"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// SecretMatches reports whether the presented secret corresponds to the
// stored hash.
func (c *Client) SecretMatches(secret string) bool {
	return hashutil.BCryptMatches(c.HashedSecret, secret)
}

// IsRedirectURIAllowed reports whether uri is among the registered redirect
// URIs.
func (c *Client) IsRedirectURIAllowed(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// Session is an in-flight authorization. It is created by Authorize with no
// user bound, bound to a user exactly once, and granted consent at most
// once (consent never regresses to unset).
type Session struct {
	ID       string `json:"id" bson:"_id"`
	ClientID string `json:"client_id" bson:"client_id"`
	// UserID is empty until the login surface completes and Continue binds
	// the authenticated user.
	UserID              string     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Scopes              []string   `json:"scopes" bson:"scopes"`
	RedirectURI         string     `json:"redirect_uri" bson:"redirect_uri"`
	State               string     `json:"state" bson:"state"`
	ResponseType        string     `json:"response_type" bson:"response_type"`
	CodeChallenge       string     `json:"code_challenge" bson:"code_challenge"`
	CodeChallengeMethod string     `json:"code_challenge_method" bson:"code_challenge_method"`
	Status              Status     `json:"status" bson:"status"`
	ConsentGrantedAt    *time.Time `json:"consent_granted_at,omitempty" bson:"consent_granted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" bson:"updated_at"`
}

func (s *Session) IsAuthorized() bool {
	return s.UserID != ""
}

func (s *Session) IsConsentGranted() bool {
	return s.ConsentGrantedAt != nil
}

// SessionPatch enumerates the session fields a store update may touch after
// creation. Binding the user is not part of the patch; it goes through the
// dedicated compare-and-set transition.
type SessionPatch struct {
	ConsentGrantedAt *time.Time
	// Scopes, when non-nil, replaces the session's scope list. Narrowing to
	// the consented set is the only legitimate use.
	Scopes []string
}

// Consent records that a user approved a client's access to a scope set.
// One row per (client, user) grant.
type Consent struct {
	ID        string    `json:"id" bson:"_id"`
	ClientID  string    `json:"client_id" bson:"client_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Scopes    []string  `json:"scopes" bson:"scopes"`
	Status    Status    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Token is the durable record of an issued token pair. Only SHA-256 digests
// are persisted; raw token values exist only in transit.
type Token struct {
	ID                 string    `json:"id" bson:"_id"`
	SessionID          string    `json:"session_id" bson:"session_id"`
	AccessTokenDigest  string    `json:"access_token_digest" bson:"access_token_digest"`
	RefreshTokenDigest string    `json:"refresh_token_digest" bson:"refresh_token_digest"`
	Status             Status    `json:"status" bson:"status"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// PushedRequest is the full client-submitted authorization payload kept in
// the request vault between Push and Authorize.
type PushedRequest struct {
	ClientID            string `json:"client_id"`
	ClientSecret        string `json:"client_secret"`
	Scope               string `json:"scope"`
	RedirectURI         string `json:"redirect_uri"`
	ResponseType        string `json:"response_type"`
	State               string `json:"state"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// CodeEnvelope is the transient value stored under a minted authorization
// code. It is consumed exactly once by the token endpoint.
type CodeEnvelope struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Profile is the public userinfo shape returned to resource servers.
type Profile struct {
	Sub        string `json:"sub"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Gender     string `json:"gender"`
	Email      string `json:"email"`
	CreatedAt  string `json:"created_at"`
}
