package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a JWT and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// JWKSClient verifies token signatures with keys fetched from a JWKS URL.
// keyfunc refreshes the key set in the background.
type JWKSClient struct {
	keys   keyfunc.Keyfunc
	issuer string
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	JWKSURL string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// NewJWKSClient fetches the key set once and keeps it refreshed until ctx is done.
func NewJWKSClient(ctx context.Context, cfg JWKSConfig) (*JWKSClient, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client for %s: %w", cfg.JWKSURL, err)
	}
	return &JWKSClient{keys: keys, issuer: cfg.Issuer}, nil
}

// ValidateToken checks the signature and standard time claims.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384"}),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, c.keys.Keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

var _ TokenValidator = (*JWKSClient)(nil)
