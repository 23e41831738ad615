package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are embedded in access tokens
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string   `json:"uid"`
	UserRole UserRole `json:"role"`
}

// UserID returns the user ID
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// UserUUID parses the user ID
func (c *AccessClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Role returns the role the token was issued for
func (c *AccessClaims) Role() UserRole {
	return c.UserRole
}

// HasRole checks the role the token was issued for
func (c *AccessClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the claimed role meets the minimum required level
func (c *AccessClaims) IsAtLeast(minRole UserRole) bool {
	return c.UserRole.IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RefreshClaims are embedded in refresh tokens. They carry no role, the
// role is read from the credential store when a new access token is minted.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// UserID returns the user ID
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// UserUUID parses the user ID
func (c *RefreshClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}
