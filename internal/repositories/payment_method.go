package repositories

import (
	"context"
	"fmt"
	"log"

	"tierpay/internal/models"
	"tierpay/internal/repositories/cache"

	"gorm.io/gorm"
)

// PaymentMethodRepository reads merchant payment instructions shown to customers.
type PaymentMethodRepository interface {
	ListByMerchant(ctx context.Context, merchantID uint) ([]models.PaymentMethod, error)
	Create(ctx context.Context, method *models.PaymentMethod) error
}

type paymentMethodRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewPaymentMethodRepository creates the repository. cache may be nil.
func NewPaymentMethodRepository(db *gorm.DB, cache *cache.CacheService) PaymentMethodRepository {
	return &paymentMethodRepository{
		db:    db,
		cache: cache,
	}
}

func (r *paymentMethodRepository) ListByMerchant(ctx context.Context, merchantID uint) ([]models.PaymentMethod, error) {
	if r.cache != nil {
		if methods, found, err := r.cache.GetPaymentMethods(ctx, merchantID); err == nil && found {
			return methods, nil
		} else if err != nil {
			log.Printf("payment method cache read failed for merchant %d: %v", merchantID, err)
		}
	}

	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("is_default DESC, id ASC").
		Find(&methods).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	if r.cache != nil {
		if err := r.cache.CachePaymentMethods(ctx, merchantID, methods); err != nil {
			log.Printf("failed to cache payment methods for merchant %d: %v", merchantID, err)
		}
	}
	return methods, nil
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *models.PaymentMethod) error {
	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if r.cache != nil {
		if err := r.cache.InvalidatePaymentMethods(ctx, method.MerchantID); err != nil {
			log.Printf("failed to invalidate payment methods for merchant %d: %v", method.MerchantID, err)
		}
	}
	return nil
}
