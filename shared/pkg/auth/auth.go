package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier checks bearer tokens against bcrypt hashes. Only hashes are
// ever configured; plaintext tokens stay with the callers.
type TokenVerifier struct {
	hashes [][]byte
}

// NewTokenVerifier validates and loads bcrypt hashes
func NewTokenVerifier(hashes ...string) (*TokenVerifier, error) {
	if len(hashes) == 0 {
		return nil, errors.New("at least one token hash is required")
	}
	v := &TokenVerifier{hashes: make([][]byte, 0, len(hashes))}
	for i, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("token hash %d is not a bcrypt hash: %w", i, err)
		}
		v.hashes = append(v.hashes, []byte(h))
	}
	return v, nil
}

// Verify returns nil when token matches any configured hash
func (v *TokenVerifier) Verify(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	for _, h := range v.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(token)) == nil {
			return nil
		}
	}
	return ErrInvalidToken
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if err := v.Verify(token); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="execreaper"`)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateToken returns a random URL-safe token and its bcrypt hash
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(tokenBytes)

	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash token: %w", err)
	}
	return token, string(hashed), nil
}
