package repositories

import (
	"context"
	"fmt"
	"time"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TerminalRepository persists terminals and the scan codes that point at them.
type TerminalRepository interface {
	// WithTx returns a repository bound to an open transaction
	WithTx(tx *gorm.DB) TerminalRepository

	Create(ctx context.Context, terminal *models.Terminal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
	// GetForUpdate reads the terminal holding a row lock where the dialect supports it
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Terminal, error)
	GetByScanCode(ctx context.Context, code string) (*models.Terminal, error)
	ListByMerchant(ctx context.Context, merchantID uint) ([]models.Terminal, error)
	CountByMerchant(ctx context.Context, merchantID uint) (int64, error)
	UpdateScanCode(ctx context.Context, id uuid.UUID, code string, rotatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	GetMerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error)
	GetMerchantCodeByCode(ctx context.Context, code string) (*models.MerchantScanCode, error)
	SaveMerchantCode(ctx context.Context, code *models.MerchantScanCode) error

	RetireCode(ctx context.Context, retired *models.RetiredScanCode) error
	FindRetiredCode(ctx context.Context, code string) (*models.RetiredScanCode, error)
}

type terminalRepository struct {
	db *gorm.DB
}

// NewTerminalRepository creates a new instance of TerminalRepository
func NewTerminalRepository(db *gorm.DB) TerminalRepository {
	return &terminalRepository{db: db}
}

func (r *terminalRepository) WithTx(tx *gorm.DB) TerminalRepository {
	return &terminalRepository{db: tx}
}

func (r *terminalRepository) Create(ctx context.Context, terminal *models.Terminal) error {
	if terminal.ID == uuid.Nil {
		terminal.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(terminal).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *terminalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *terminalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *terminalRepository) GetByScanCode(ctx context.Context, code string) (*models.Terminal, error) {
	return r.first(r.db.WithContext(ctx).Where("scan_code = ?", code))
}

func (r *terminalRepository) first(q *gorm.DB) (*models.Terminal, error) {
	var terminal models.Terminal
	if err := q.First(&terminal).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrTerminalNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &terminal, nil
}

func (r *terminalRepository) ListByMerchant(ctx context.Context, merchantID uint) ([]models.Terminal, error) {
	var terminals []models.Terminal
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at ASC").
		Find(&terminals).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return terminals, nil
}

func (r *terminalRepository) CountByMerchant(ctx context.Context, merchantID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Terminal{}).
		Where("merchant_id = ?", merchantID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return count, nil
}

func (r *terminalRepository) UpdateScanCode(ctx context.Context, id uuid.UUID, code string, rotatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Terminal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"scan_code":       code,
			"code_rotated_at": rotatedAt,
			"updated_at":      rotatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTerminalNotFound
	}
	return nil
}

func (r *terminalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Terminal{})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTerminalNotFound
	}
	return nil
}

func (r *terminalRepository) GetMerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error) {
	return r.firstMerchantCode(r.db.WithContext(ctx).Where("merchant_id = ?", merchantID))
}

func (r *terminalRepository) GetMerchantCodeByCode(ctx context.Context, code string) (*models.MerchantScanCode, error) {
	return r.firstMerchantCode(r.db.WithContext(ctx).Where("scan_code = ?", code))
}

func (r *terminalRepository) firstMerchantCode(q *gorm.DB) (*models.MerchantScanCode, error) {
	var code models.MerchantScanCode
	if err := q.First(&code).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrScanCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &code, nil
}

func (r *terminalRepository) SaveMerchantCode(ctx context.Context, code *models.MerchantScanCode) error {
	if err := r.db.WithContext(ctx).Save(code).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *terminalRepository) RetireCode(ctx context.Context, retired *models.RetiredScanCode) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(retired).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *terminalRepository) FindRetiredCode(ctx context.Context, code string) (*models.RetiredScanCode, error) {
	var retired models.RetiredScanCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&retired).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrScanCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &retired, nil
}
