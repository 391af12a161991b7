package notification

import (
	"fmt"
	"time"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSessionCreated   EventType = "session.created"
	EventAmountProposed   EventType = "amount.proposed"
	EventSessionApproved  EventType = "session.approved"
	EventPaymentConfirmed EventType = "payment.confirmed"
	EventSessionSettled   EventType = "session.settled"
	EventSessionCancelled EventType = "session.cancelled"
	EventSessionExpired   EventType = "session.expired"

	// EventSessionSnapshot opens every stream with the current state.
	EventSessionSnapshot EventType = "session.snapshot"
)

// Event is pushed to both parties whenever a session changes.
type Event struct {
	Type              EventType            `json:"type"`
	SessionID         uuid.UUID            `json:"session_id"`
	MerchantID        uint                 `json:"merchant_id"`
	CustomerID        uint                 `json:"customer_id"`
	TerminalID        *uuid.UUID           `json:"terminal_id,omitempty"`
	Status            models.SessionStatus `json:"status"`
	Version           int64                `json:"version"`
	Amount            decimal.Decimal      `json:"amount"`
	UpfrontAmount     decimal.Decimal      `json:"upfront_amount"`
	FinancedAmount    decimal.Decimal      `json:"financed_amount"`
	InstallmentAmount decimal.Decimal      `json:"installment_amount"`
	InstallmentCount  int                  `json:"installment_count"`
	OccurredAt        time.Time            `json:"occurred_at"`
}

// NewEvent snapshots sess.
func NewEvent(t EventType, sess *models.Session, at time.Time) Event {
	return Event{
		Type:              t,
		SessionID:         sess.ID,
		MerchantID:        sess.MerchantID,
		CustomerID:        sess.CustomerID,
		TerminalID:        sess.TerminalID,
		Status:            sess.Status,
		Version:           sess.Version,
		Amount:            sess.Amount,
		UpfrontAmount:     sess.UpfrontAmount,
		FinancedAmount:    sess.FinancedAmount,
		InstallmentAmount: sess.InstallmentAmount,
		InstallmentCount:  sess.InstallmentCount,
		OccurredAt:        at,
	}
}

// Channels lists every topic the event is published on.
func (e Event) Channels() []string {
	return []string{
		SessionChannel(e.SessionID),
		MerchantChannel(e.MerchantID),
		CustomerChannel(e.CustomerID),
	}
}

func SessionChannel(id uuid.UUID) string {
	return "session:" + id.String()
}

func MerchantChannel(id uint) string {
	return fmt.Sprintf("merchant:%d", id)
}

func CustomerChannel(id uint) string {
	return fmt.Sprintf("customer:%d", id)
}
