package repositories

import (
	"context"
	"fmt"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementRepository stores sales and their installment commitments.
type SettlementRepository interface {
	WithTx(tx *gorm.DB) SettlementRepository

	FindSaleBySession(ctx context.Context, sessionID uuid.UUID) (*models.Sale, error)
	ListCommitments(ctx context.Context, sessionID uuid.UUID) ([]models.InstallmentCommitment, error)
	ListCommitmentsByCustomer(ctx context.Context, customerID uint) ([]models.InstallmentCommitment, error)
	ListSalesByMerchant(ctx context.Context, merchantID uint, offset, limit int) ([]models.Sale, int64, error)
	// CreateSale writes the sale and every commitment. ErrDuplicate when a sale
	// for the session already exists.
	CreateSale(ctx context.Context, sale *models.Sale, commitments []models.InstallmentCommitment) error
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) WithTx(tx *gorm.DB) SettlementRepository {
	return &settlementRepository{db: tx}
}

func (r *settlementRepository) FindSaleBySession(ctx context.Context, sessionID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sale).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &sale, nil
}

func (r *settlementRepository) ListCommitments(ctx context.Context, sessionID uuid.UUID) ([]models.InstallmentCommitment, error) {
	var commitments []models.InstallmentCommitment
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_index ASC").
		Find(&commitments).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return commitments, nil
}

func (r *settlementRepository) ListCommitmentsByCustomer(ctx context.Context, customerID uint) ([]models.InstallmentCommitment, error) {
	var commitments []models.InstallmentCommitment
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("due_date ASC").
		Find(&commitments).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return commitments, nil
}

func (r *settlementRepository) ListSalesByMerchant(ctx context.Context, merchantID uint, offset, limit int) ([]models.Sale, int64, error) {
	var (
		sales []models.Sale
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.Sale{}).Where("merchant_id = ?", merchantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("settled_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return sales, total, nil
}

func (r *settlementRepository) CreateSale(ctx context.Context, sale *models.Sale, commitments []models.InstallmentCommitment) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(sale).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if len(commitments) == 0 {
		return nil
	}
	if err := db.Create(&commitments).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}
