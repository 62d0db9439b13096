// Package auth validates bearer tokens against a JWKS endpoint.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// Claims embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the profile claims used for lineage ownership.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Owner is the name recorded as the owner of work done under these claims.
func (c *Claims) Owner() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// OwnerFromContext returns the authenticated owner, or "" when the request
// carried no claims.
func OwnerFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.Owner()
}
