package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateAndVerify(t *testing.T) {
	token, hash, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, token, hash)

	other, err := bcrypt.GenerateFromPassword([]byte("other"), bcrypt.MinCost)
	require.NoError(t, err)

	v, err := NewTokenVerifier(string(other), hash)
	require.NoError(t, err)

	assert.NoError(t, v.Verify(token))
	assert.NoError(t, v.Verify("other"))
	assert.ErrorIs(t, v.Verify("wrong"), ErrInvalidToken)
	assert.ErrorIs(t, v.Verify(""), ErrMissingToken)
}

func TestNewTokenVerifierRejectsBadHashes(t *testing.T) {
	_, err := NewTokenVerifier()
	assert.Error(t, err)

	_, err = NewTokenVerifier("plaintext")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	v, err := NewTokenVerifier(string(hash))
	require.NoError(t, err)

	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
