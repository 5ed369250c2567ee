package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the token payload used to enrich logs and traces.
// They are never verified and must not be used for authorization decisions.
type Claims struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the payload of a JWT bearer token without verifying its signature.
// Opaque tokens return an error and are otherwise fine to use.
func ParseClaims(token string) (*Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}

	claims := &Claims{
		Subject: tc.Subject,
		Roles:   tc.Roles,
	}
	if len(claims.Roles) == 0 && tc.Role != "" {
		claims.Roles = []string{tc.Role}
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}

	return claims, nil
}

// Expired reports whether the token carries an expiry at or before now
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
