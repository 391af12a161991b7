package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditProfile is owned by the account subsystem; this service only reads it.
type CreditProfile struct {
	CustomerID            uint            `gorm:"primaryKey;autoIncrement:false" json:"customer_id"`
	AccountCategory       string          `gorm:"size:16;not null;default:'individual'" json:"account_category"`
	Level                 int             `gorm:"not null;default:1" json:"level"`
	OutstandingFinanced   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"outstanding_financed"`
	CompletedTransactions int             `gorm:"not null;default:0" json:"completed_transactions"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// PaymentMethod is a merchant's out-of-band payment channel shown to customers.
type PaymentMethod struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	MerchantID    uint      `gorm:"not null;index" json:"merchant_id"`
	Channel       string    `gorm:"size:32;not null" json:"channel"`
	BankName      string    `gorm:"size:128" json:"bank_name,omitempty"`
	AccountName   string    `gorm:"size:128" json:"account_name,omitempty"`
	AccountNumber string    `gorm:"size:64" json:"account_number,omitempty"`
	Phone         string    `gorm:"size:32" json:"phone,omitempty"`
	IsDefault     bool      `gorm:"not null;default:false" json:"is_default"`
	Details       JSON      `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
