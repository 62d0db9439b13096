package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testKID = "test-key"

// jwksServer serves the public half of key as a JWK set.
func jwksServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	set := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKID
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://auth.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "researcher@example.com",
	}
}

func newTestClient(t *testing.T, issuer string) (*JWKSClient, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, key)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	client, err := NewJWKSClient(ctx, JWKSConfig{JWKSURL: srv.URL, Issuer: issuer})
	require.NoError(t, err)
	return client, key
}

func TestJWKSClient_ValidateToken(t *testing.T) {
	client, key := newTestClient(t, "https://auth.example.com")

	claims, err := client.ValidateToken(signToken(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "researcher@example.com", claims.Owner())
}

func TestJWKSClient_Rejects(t *testing.T) {
	client, key := newTestClient(t, "https://auth.example.com")
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      signToken(t, key, expired),
		"wrong issuer": signToken(t, key, wrongIssuer),
		"wrong key":    signToken(t, otherKey, validClaims()),
		"no subject":   signToken(t, key, noSubject),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := client.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestNewJWKSClient_RequiresURL(t *testing.T) {
	_, err := NewJWKSClient(context.Background(), JWKSConfig{})
	assert.Error(t, err)
}

type stubValidator struct {
	claims *Claims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*Claims, error) {
	s.token = token
	return s.claims, s.err
}

func TestMiddleware_RequireAuth(t *testing.T) {
	validator := &stubValidator{claims: validClaims()}
	m := NewMiddleware(validator, zap.NewNop())

	var owner string
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/1/attributes", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def.ghi", validator.token)
	assert.Equal(t, "researcher@example.com", owner)
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty token":    "Bearer ",
		"invalid token":  "Bearer bad",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			validator := &stubValidator{err: jwt.ErrTokenMalformed}
			m := NewMiddleware(validator, zap.NewNop())
			called := false
			handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}

func TestMiddleware_RejectedTokenAudited(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := NewMiddleware(&stubValidator{err: jwt.ErrTokenExpired}, zap.New(core))
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// Missing header is not a security event.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	assert.Zero(t, logs.FilterLoggerName("security_audit").Len())

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	req.Header.Set("Authorization", "Bearer expired")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	audited := logs.FilterLoggerName("security_audit").All()
	require.Len(t, audited, 1)
	assert.Equal(t, "/api/imports", audited[0].ContextMap()["path"])
	assert.Contains(t, audited[0].ContextMap()["reason"], "expired")
}

func TestOwnerFromContext(t *testing.T) {
	assert.Empty(t, OwnerFromContext(context.Background()))

	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "svc"}}
	ctx := context.WithValue(context.Background(), ClaimsKey, c)
	assert.Equal(t, "svc", OwnerFromContext(ctx))
}
