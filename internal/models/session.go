package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMoneyAmount is the largest value a decimal(14,2) money column holds.
var MaxMoneyAmount = decimal.New(1, 12).Sub(decimal.New(1, -2))

type SessionStatus string

const (
	SessionStatusAmountPending     SessionStatus = "AMOUNT_PENDING"
	SessionStatusCustomerReview    SessionStatus = "CUSTOMER_REVIEW"
	SessionStatusAwaitingPayment   SessionStatus = "AWAITING_PAYMENT"
	SessionStatusSettlementPending SessionStatus = "SETTLEMENT_PENDING"
	SessionStatusSettled           SessionStatus = "SETTLED"
	SessionStatusCancelled         SessionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition can leave this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusSettled || s == SessionStatusCancelled
}

func (s SessionStatus) String() string {
	return string(s)
}

// ActiveSessionStatuses lists every non-terminal status.
var ActiveSessionStatuses = []SessionStatus{
	SessionStatusAmountPending,
	SessionStatusCustomerReview,
	SessionStatusAwaitingPayment,
	SessionStatusSettlementPending,
}

// Session is one merchant/customer QR payment handshake.
type Session struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID        uint            `gorm:"not null;index" json:"merchant_id"`
	TerminalID        *uuid.UUID      `gorm:"type:uuid;index" json:"terminal_id,omitempty"`
	CustomerID        uint            `gorm:"not null;index" json:"customer_id"`
	Status            SessionStatus   `gorm:"size:32;not null;index" json:"status"`
	Currency          string          `gorm:"size:8;not null;default:'USD'" json:"currency"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"amount"`
	UpfrontAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"upfront_amount"`
	FinancedAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"financed_amount"`
	InstallmentAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"installment_amount"`
	InstallmentCount  int             `gorm:"not null;default:0" json:"installment_count"`
	TierLevel         int             `gorm:"not null;default:0" json:"tier_level"`
	AccountCategory   string          `gorm:"size:16" json:"account_category,omitempty"`
	PaymentReference  string          `gorm:"size:128" json:"payment_reference,omitempty"`
	ProofStatus       string          `gorm:"size:64" json:"proof_status,omitempty"`
	CancelledBy       string          `gorm:"size:16" json:"cancelled_by,omitempty"`
	CancelReason      string          `gorm:"size:255" json:"cancel_reason,omitempty"`
	Version           int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Session) TableName() string {
	return "qr_sessions"
}

// SessionEvent is the append-only record of one applied transition.
type SessionEvent struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_session_event_version" json:"session_id"`
	Version    int64         `gorm:"not null;uniqueIndex:idx_session_event_version" json:"version"`
	Type       string        `gorm:"size:32;not null" json:"type"`
	FromStatus SessionStatus `gorm:"size:32" json:"from_status,omitempty"`
	ToStatus   SessionStatus `gorm:"size:32;not null" json:"to_status"`
	Actor      string        `gorm:"size:16;not null" json:"actor"`
	ActorID    uint          `json:"actor_id,omitempty"`
	Payload    JSON          `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
