package repositories

import (
	"context"
	"fmt"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BindingRepository owns the slot table that enforces one active session per terminal.
type BindingRepository interface {
	WithTx(tx *gorm.DB) BindingRepository

	// Bind inserts the binding; ErrSlotTaken when the slot is already held
	Bind(ctx context.Context, binding *models.SessionBinding) error
	// Release removes the binding only if it still belongs to sessionID
	Release(ctx context.Context, slot string, sessionID uuid.UUID) error
	GetBySlot(ctx context.Context, slot string) (*models.SessionBinding, error)
}

type bindingRepository struct {
	db *gorm.DB
}

func NewBindingRepository(db *gorm.DB) BindingRepository {
	return &bindingRepository{db: db}
}

func (r *bindingRepository) WithTx(tx *gorm.DB) BindingRepository {
	return &bindingRepository{db: tx}
}

func (r *bindingRepository) Bind(ctx context.Context, binding *models.SessionBinding) error {
	existing, err := r.GetBySlot(ctx, binding.Slot)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrSlotTaken
	}

	if err := r.db.WithContext(ctx).Create(binding).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *bindingRepository) Release(ctx context.Context, slot string, sessionID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("slot = ? AND session_id = ?", slot, sessionID).
		Delete(&models.SessionBinding{}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

// GetBySlot returns nil, nil when the slot is free.
func (r *bindingRepository) GetBySlot(ctx context.Context, slot string) (*models.SessionBinding, error) {
	var bindings []models.SessionBinding
	if err := r.db.WithContext(ctx).Where("slot = ?", slot).Limit(1).Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if len(bindings) == 0 {
		return nil, nil
	}
	return &bindings[0], nil
}
