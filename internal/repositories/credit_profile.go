package repositories

import (
	"context"
	"fmt"

	"tierpay/internal/models"

	"gorm.io/gorm"
)

// CreditProfileRepository reads the account subsystem's credit profiles.
// Reads are never cached: a level change must be visible to the next quote.
type CreditProfileRepository interface {
	WithTx(tx *gorm.DB) CreditProfileRepository
	GetByCustomer(ctx context.Context, customerID uint) (*models.CreditProfile, error)
	// Upsert is used by seeding and tests only
	Upsert(ctx context.Context, profile *models.CreditProfile) error
}

type creditProfileRepository struct {
	db *gorm.DB
}

func NewCreditProfileRepository(db *gorm.DB) CreditProfileRepository {
	return &creditProfileRepository{db: db}
}

func (r *creditProfileRepository) WithTx(tx *gorm.DB) CreditProfileRepository {
	return &creditProfileRepository{db: tx}
}

func (r *creditProfileRepository) GetByCustomer(ctx context.Context, customerID uint) (*models.CreditProfile, error) {
	var profile models.CreditProfile
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&profile).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrCreditProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &profile, nil
}

func (r *creditProfileRepository) Upsert(ctx context.Context, profile *models.CreditProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}
