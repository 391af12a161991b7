package terminal

import (
	"time"

	"tierpay/internal/models"

	"github.com/google/uuid"
)

// Config tunes the registry.
type Config struct {
	// Limit is the per-merchant terminal cap
	Limit int
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
	// Now and GenerateCode are swapped in tests
	Now          func() time.Time
	GenerateCode func() (string, error)
}

// BindRequest claims the slot of target for sessionID. ScanCode, when set,
// must still be the current code of the target.
type BindRequest struct {
	Target    models.ScanTarget
	ScanCode  string
	SessionID uuid.UUID
}

// TerminalView is a terminal as listed to its merchant.
type TerminalView struct {
	models.Terminal
	ActiveSessionID *uuid.UUID `json:"active_session_id,omitempty"`
}
