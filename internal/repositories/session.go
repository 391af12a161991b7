package repositories

import (
	"context"
	"fmt"
	"time"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository persists sessions and their append-only event log.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository

	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// CompareAndSwap applies updates only if the row still has the expected
	// status and version. It bumps the version and returns ErrVersionConflict
	// when nothing matched.
	CompareAndSwap(ctx context.Context, id uuid.UUID, status models.SessionStatus, version int64, updates map[string]interface{}) error
	ListActiveByMerchant(ctx context.Context, merchantID uint) ([]models.Session, error)
	ListActiveByCustomer(ctx context.Context, customerID uint) ([]models.Session, error)
	// ListIdle returns sessions in one of statuses not updated since before
	ListIdle(ctx context.Context, statuses []models.SessionStatus, before time.Time, limit int) ([]models.Session, error)

	AppendEvent(ctx context.Context, event *models.SessionEvent) error
	ListEvents(ctx context.Context, sessionID uuid.UUID) ([]models.SessionEvent, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	return &sessionRepository{db: tx}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Version == 0 {
		session.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &session, nil
}

func (r *sessionRepository) CompareAndSwap(
	ctx context.Context,
	id uuid.UUID,
	status models.SessionStatus,
	version int64,
	updates map[string]interface{},
) error {
	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = version + 1

	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ? AND version = ?", id, status, version).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *sessionRepository) ListActiveByMerchant(ctx context.Context, merchantID uint) ([]models.Session, error) {
	return r.listActive(ctx, "merchant_id = ?", merchantID)
}

func (r *sessionRepository) ListActiveByCustomer(ctx context.Context, customerID uint) ([]models.Session, error) {
	return r.listActive(ctx, "customer_id = ?", customerID)
}

func (r *sessionRepository) listActive(ctx context.Context, cond string, arg interface{}) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Where("status IN ?", models.ActiveSessionStatuses).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return sessions, nil
}

func (r *sessionRepository) ListIdle(ctx context.Context, statuses []models.SessionStatus, before time.Time, limit int) ([]models.Session, error) {
	var sessions []models.Session
	q := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("updated_at < ?", before).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return sessions, nil
}

func (r *sessionRepository) AppendEvent(ctx context.Context, event *models.SessionEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *sessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]models.SessionEvent, error) {
	var events []models.SessionEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return events, nil
}
