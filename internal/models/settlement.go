package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommitmentStatus string

const (
	CommitmentStatusPending CommitmentStatus = "pending"
	CommitmentStatusPaid    CommitmentStatus = "paid"
	CommitmentStatusOverdue CommitmentStatus = "overdue"
)

// Sale is the paid-today record of a settled session.
type Sale struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	MerchantID       uint            `gorm:"not null;index" json:"merchant_id"`
	CustomerID       uint            `gorm:"not null;index" json:"customer_id"`
	TerminalID       *uuid.UUID      `gorm:"type:uuid" json:"terminal_id,omitempty"`
	Currency         string          `gorm:"size:8;not null" json:"currency"`
	Amount           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	UpfrontAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"upfront_amount"`
	FinancedAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"financed_amount"`
	InstallmentCount int             `gorm:"not null" json:"installment_count"`
	PaymentReference string          `gorm:"size:128" json:"payment_reference,omitempty"`
	SettledAt        time.Time       `gorm:"not null" json:"settled_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

// InstallmentCommitment is one future payment owed on the financed balance.
type InstallmentCommitment struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"sale_id"`
	SessionID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_commitment_sequence" json:"session_id"`
	SequenceIndex int              `gorm:"not null;uniqueIndex:idx_commitment_sequence" json:"sequence_index"`
	CustomerID    uint             `gorm:"not null;index" json:"customer_id"`
	MerchantID    uint             `gorm:"not null;index" json:"merchant_id"`
	Principal     decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"principal"`
	DueDate       time.Time        `gorm:"not null;index" json:"due_date"`
	Status        CommitmentStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}
