package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Terminal is a named cash box through which customers start sessions.
type Terminal struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID     uint      `gorm:"not null;uniqueIndex:idx_terminal_merchant_name" json:"merchant_id"`
	Name           string    `gorm:"size:64;not null;uniqueIndex:idx_terminal_merchant_name" json:"name"`
	CredentialHash string    `gorm:"not null" json:"-"`
	ScanCode       string    `gorm:"size:64;not null;uniqueIndex" json:"scan_code"`
	CodeRotatedAt  time.Time `json:"code_rotated_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MerchantScanCode is the counter code used when a merchant sells without a named terminal.
type MerchantScanCode struct {
	MerchantID    uint      `gorm:"primaryKey;autoIncrement:false" json:"merchant_id"`
	ScanCode      string    `gorm:"size:64;not null;uniqueIndex" json:"scan_code"`
	CodeRotatedAt time.Time `json:"code_rotated_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// RetiredScanCode remembers rotated-out codes so a stale scan is told apart from a bogus one.
type RetiredScanCode struct {
	Code       string     `gorm:"size:64;primaryKey"`
	MerchantID uint       `gorm:"not null;index"`
	TerminalID *uuid.UUID `gorm:"type:uuid"`
	RetiredAt  time.Time
}

// SessionBinding exists while a non-terminal session holds a terminal slot.
type SessionBinding struct {
	Slot       string     `gorm:"size:96;primaryKey" json:"slot"`
	MerchantID uint       `gorm:"not null;index" json:"merchant_id"`
	TerminalID *uuid.UUID `gorm:"type:uuid" json:"terminal_id,omitempty"`
	SessionID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScanTarget is what a scan code resolves to.
type ScanTarget struct {
	MerchantID uint       `json:"merchant_id"`
	TerminalID *uuid.UUID `json:"terminal_id,omitempty"`
}

// SlotKey names the exclusivity slot of a (merchant, terminal) pair.
func SlotKey(merchantID uint, terminalID *uuid.UUID) string {
	if terminalID == nil {
		return fmt.Sprintf("m:%d:default", merchantID)
	}
	return fmt.Sprintf("m:%d:t:%s", merchantID, terminalID.String())
}
