package session

import (
	"time"

	"tierpay/internal/domain/credit"
	"tierpay/internal/models"
	"tierpay/internal/services/financing"
	"tierpay/internal/services/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleMerchant Role = "merchant"
	RoleCustomer Role = "customer"
	RoleSystem   Role = "system"
)

// Actor is the party requesting a transition. A terminal operator is a
// merchant actor scoped to one terminal.
type Actor struct {
	Role       Role
	ID         uint
	TerminalID *uuid.UUID
}

func MerchantActor(merchantID uint) Actor {
	return Actor{Role: RoleMerchant, ID: merchantID}
}

func TerminalActor(merchantID uint, terminalID uuid.UUID) Actor {
	return Actor{Role: RoleMerchant, ID: merchantID, TerminalID: &terminalID}
}

func CustomerActor(customerID uint) Actor {
	return Actor{Role: RoleCustomer, ID: customerID}
}

// SystemActor is used by the idle sweeper.
var SystemActor = Actor{Role: RoleSystem}

// Config tunes the session service.
type Config struct {
	Currency string
	// IdleTimeout of zero disables automatic expiry
	IdleTimeout time.Duration
	// SweepBatch bounds how many sessions one sweep cancels
	SweepBatch int
	Now        func() time.Time
}

// View is a session as shown to either party.
type View struct {
	models.Session
	PaymentMethods []models.PaymentMethod `json:"payment_methods,omitempty"`
	Schedule       []decimal.Decimal      `json:"schedule,omitempty"`
	Settlement     *settlement.Result     `json:"settlement,omitempty"`
}

// Quote is a financing preview for a customer, before any session exists.
type Quote struct {
	Category credit.Category   `json:"category"`
	Tier     credit.Tier       `json:"tier"`
	Result   financing.Result  `json:"result"`
	Schedule []decimal.Decimal `json:"schedule"`
}
