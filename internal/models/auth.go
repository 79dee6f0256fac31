package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are carried by both access and refresh tokens. The subject
// (RegisteredClaims.Subject) is the user ID.
type TokenClaims struct {
	Type   string `json:"type"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim
func (c *TokenClaims) UserID() string {
	return c.Subject
}
