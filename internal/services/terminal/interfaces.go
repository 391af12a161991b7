package terminal

import (
	"context"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the cashier terminal registry.
type Service interface {
	// Terminal management
	Create(ctx context.Context, merchantID uint, name, credential string) (*models.Terminal, error)
	List(ctx context.Context, merchantID uint) ([]TerminalView, error)
	Remove(ctx context.Context, merchantID uint, terminalID uuid.UUID) error
	RotateCode(ctx context.Context, merchantID uint, terminalID uuid.UUID) (*models.Terminal, error)
	Authenticate(ctx context.Context, terminalID uuid.UUID, credential string) (*models.Terminal, error)

	// Counter code for sales without a named terminal
	MerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error)
	RotateMerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error)

	// Scan code resolution and slot exclusivity
	ResolveScanCode(ctx context.Context, code string) (*models.ScanTarget, error)
	BindSession(ctx context.Context, tx *gorm.DB, req BindRequest) error
	ReleaseSession(ctx context.Context, tx *gorm.DB, merchantID uint, terminalID *uuid.UUID, sessionID uuid.UUID) error
}

// CodeCache caches resolved scan codes. Satisfied by cache.CacheService.
type CodeCache interface {
	CacheScanTarget(ctx context.Context, code string, target *models.ScanTarget) error
	GetScanTarget(ctx context.Context, code string) (*models.ScanTarget, bool, error)
	InvalidateScanCode(ctx context.Context, code string) error
}
