// Package auth verifies caller credentials and yields a user identity.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// User is a verified caller identity.
type User struct {
	ID string
}

// Authenticator validates bearer tokens against a set of known token hashes.
// Tokens are never stored in the clear; the config carries SHA-256 hashes.
type Authenticator struct {
	users map[string]*User // token hash -> user
}

// NewAuthenticator creates an authenticator from a token-hash -> user ID map.
func NewAuthenticator(tokenHashes map[string]string) *Authenticator {
	a := &Authenticator{users: make(map[string]*User)}
	for hash, userID := range tokenHashes {
		a.users[hash] = &User{ID: userID}
	}
	return a
}

// ValidateToken validates a bearer token and returns the associated user.
func (a *Authenticator) ValidateToken(token string) (*User, error) {
	hash := HashToken(token)

	// Constant-time comparison to prevent timing attacks
	for known, user := range a.users {
		if subtle.ConstantTimeCompare([]byte(hash), []byte(known)) == 1 {
			return user, nil
		}
	}

	return nil, fmt.Errorf("invalid token")
}

// ExtractToken extracts the bearer token from the Authorization header.
func ExtractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashToken creates a SHA-256 hash of a token for storage in config.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
