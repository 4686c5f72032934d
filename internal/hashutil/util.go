// Package hashutil centralizes the digest primitives used across the
// protocol: hex SHA-256 for tokens at rest, base64url SHA-256 for PKCE
// challenges and bcrypt for client secrets.
package hashutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Digest returns the hex-encoded SHA-256 hash of s. Only digests of access
// and refresh tokens are ever persisted, never the raw values.
func Digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// Thumbprint returns the base64 URL-encoded SHA-256 hash of s without
// padding. This is the S256 transformation applied to PKCE code verifiers.
func Thumbprint(s string) string {
	hash := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// BCryptHash hashes a client secret for storage.
func BCryptHash(s string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hashed)
}

// BCryptMatches reports whether secret matches the stored bcrypt hash.
func BCryptMatches(hashed, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}
