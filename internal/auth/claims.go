package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tgienger/bugtrack/internal/models"
)

// Claims are the fields the API puts in its tokens
type Claims struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a token's claims without checking its signature.
// The client cannot verify tokens; the API does that on every call.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

// User returns the account the claims describe
func (c *Claims) User() models.User {
	u := models.User{ID: c.ID, Name: c.Name, Email: c.Subject}
	if c.ExpiresAt != nil {
		u.ExpiresAt = c.ExpiresAt.Time
	}
	return u
}
