// Package token generates the credentials the server hands out: RS256
// signed access tokens and opaque high-entropy refresh tokens.
package token

import (
	"crypto/rsa"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/raphaelvls/go-authserver/internal/strutil"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

// refreshTokenBytes is the amount of raw entropy behind a refresh token.
const refreshTokenBytes = 64

// AccessClaims is the signed payload of an access token. It is never
// persisted; the store only keeps a digest of the serialized token.
type AccessClaims struct {
	Scopes    []string `json:"scopes"`
	Subject   string   `json:"sub"`
	Expiry    int      `json:"exp"`
	IssuedAt  int      `json:"iat"`
	Issuer    string   `json:"iss"`
	Audience  string   `json:"aud"`
	ID        string   `json:"jti"`
	SessionID string   `json:"sid"`
	ClientID  string   `json:"client_id"`
	AuthTime  int      `json:"auth_time"`
}

// Signer signs access tokens with a fixed RSA key. It is built once at
// startup from the process configuration.
type Signer struct {
	key      *rsa.PrivateKey
	keyID    string
	issuer   string
	lifetime time.Duration
}

func NewSigner(key *rsa.PrivateKey, keyID, issuer string, lifetime time.Duration) *Signer {
	return &Signer{
		key:      key,
		keyID:    keyID,
		issuer:   issuer,
		lifetime: lifetime,
	}
}

// SignAccessToken issues a signed access token for the given grant.
func (s *Signer) SignAccessToken(userID, sessionID, clientID string, scopes []string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: s.key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", s.keyID),
	)
	if err != nil {
		return "", err
	}

	now := timeutil.TimestampNow()
	claims := AccessClaims{
		Scopes:    scopes,
		Subject:   userID,
		Expiry:    now + int(s.lifetime.Seconds()),
		IssuedAt:  now,
		Issuer:    s.issuer,
		Audience:  clientID,
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ClientID:  clientID,
		AuthTime:  now,
	}

	return jwt.Signed(signer).Claims(claims).Serialize()
}

// PublicKey exposes the verification key, mainly for tests and JWKS
// publication.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// ParseAccessClaims verifies the token signature against key and returns
// its claims.
func ParseAccessClaims(raw string, key *rsa.PublicKey) (AccessClaims, error) {
	parsed, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return AccessClaims{}, err
	}

	var claims AccessClaims
	if err := parsed.Claims(key, &claims); err != nil {
		return AccessClaims{}, err
	}

	return claims, nil
}

// NewRefreshToken returns a fresh opaque refresh token: 64 random bytes
// encoded as unpadded base64url.
func NewRefreshToken() string {
	return strutil.RandomURLSafe(refreshTokenBytes)
}
