package session

import (
	"context"
	"time"

	"tierpay/internal/domain/credit"
	"tierpay/internal/models"
	"tierpay/internal/services/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service runs the session state machine.
type Service interface {
	// Session creation
	Scan(ctx context.Context, customerID uint, scanCode string) (*models.Session, error)
	StartWithoutTerminal(ctx context.Context, merchantID, customerID uint) (*models.Session, error)

	// Transitions
	ProposeAmount(ctx context.Context, actor Actor, sessionID uuid.UUID, amount decimal.Decimal) (*models.Session, error)
	Approve(ctx context.Context, actor Actor, sessionID uuid.UUID) (*models.Session, error)
	Cancel(ctx context.Context, actor Actor, sessionID uuid.UUID, reason string) (*models.Session, error)
	ConfirmPayment(ctx context.Context, actor Actor, sessionID uuid.UUID, reference string) (*models.Session, error)
	Finalize(ctx context.Context, actor Actor, sessionID uuid.UUID) (*settlement.Result, error)

	// Reads
	Get(ctx context.Context, actor Actor, sessionID uuid.UUID) (*models.Session, error)
	View(ctx context.Context, actor Actor, sessionID uuid.UUID) (*View, error)
	Events(ctx context.Context, actor Actor, sessionID uuid.UUID) ([]models.SessionEvent, error)
	Settlement(ctx context.Context, actor Actor, sessionID uuid.UUID) (*settlement.Result, error)
	ListActive(ctx context.Context, actor Actor) ([]models.Session, error)
	Quote(ctx context.Context, customerID uint, amount decimal.Decimal) (*Quote, error)

	// ExpireIdle cancels sessions idle for longer than Config.IdleTimeout and
	// returns how many it cancelled
	ExpireIdle(ctx context.Context) (int, error)
}

// TierProvider resolves the tier a customer is entitled to right now, with
// the credit limit already reduced to what the customer has left.
type TierProvider interface {
	TierFor(ctx context.Context, customerID uint) (credit.Tier, credit.Category, error)
}

// PaymentMethodSource supplies the merchant's payment instructions.
type PaymentMethodSource interface {
	ListByMerchant(ctx context.Context, merchantID uint) ([]models.PaymentMethod, error)
}

// ProofInspector annotates a payment reference. Advisory only.
type ProofInspector interface {
	Inspect(ctx context.Context, reference string) string
}

// MetricsCollector receives workflow measurements.
type MetricsCollector interface {
	RecordTransition(event, from, to string)
	RecordRejection(event, code string)
	RecordOperationDuration(operation string, d time.Duration)
	RecordSettlement(financed float64, replayed bool)
}
