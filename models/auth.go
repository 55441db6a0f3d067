package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the claims carried by bearer tokens issued by the identity service
type JWTClaims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   UserRole   `json:"role"`
	Roles  []UserRole `json:"roles,omitempty"`

	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry the given role
func (c *JWTClaims) HasRole(role UserRole) bool {
	if c.Role == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
