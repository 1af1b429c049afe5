package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the platform role carried in access tokens. Only administrators
// may read reports.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
)

// JWTClaims is the access token payload issued by the platform's auth service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// AdminID returns the administrator identifier, falling back to the
// registered subject for tokens that omit user_id.
func (c *JWTClaims) AdminID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
