// Package strutil contains functions to help handling strings.
package strutil

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strings"
)

// SplitWithSpaces splits a space-delimited scope string into its scopes,
// returning an empty slice for blank input.
func SplitWithSpaces(s string) []string {
	slice := []string{}
	if strings.ReplaceAll(strings.Trim(s, " "), " ", "") != "" {
		slice = strings.Split(s, " ")
	}

	return slice
}

// ContainsOfflineAccess reports whether the scope list grants refresh
// capability.
func ContainsOfflineAccess(scopes []string) bool {
	return slices.Contains(scopes, "offline_access")
}

// RandomURLSafe returns n random bytes encoded as unpadded base64url. Used
// for opaque refresh tokens.
func RandomURLSafe(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
