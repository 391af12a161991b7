package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
	RoleCustomer = "customer"
	RoleTerminal = "terminal"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint       `json:"user_id"`
	Email        string     `json:"email,omitempty"`
	Role         string     `json:"role"`
	TerminalID   *uuid.UUID `json:"terminal_id,omitempty"`
	Permissions  []string   `json:"permissions"`
	TokenVersion int        `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// MerchantID returns the merchant the token acts for. Terminal tokens carry
// their owning merchant in UserID.
func (c *UserClaims) MerchantID() uint {
	return c.UserID
}
