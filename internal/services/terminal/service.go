package terminal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type service struct {
	db        *gorm.DB
	terminals repositories.TerminalRepository
	bindings  repositories.BindingRepository
	cache     CodeCache
	config    Config
}

// NewService creates the terminal registry. cache is optional.
func NewService(
	db *gorm.DB,
	terminals repositories.TerminalRepository,
	bindings repositories.BindingRepository,
	cache CodeCache,
	config Config,
) Service {
	if db == nil {
		panic("db is required")
	}
	if terminals == nil {
		panic("terminal repository is required")
	}
	if bindings == nil {
		panic("binding repository is required")
	}

	if config.Limit <= 0 {
		config.Limit = DefaultTerminalLimit
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	if config.GenerateCode == nil {
		config.GenerateCode = utils.GenerateSecureCode
	}

	return &service{
		db:        db,
		terminals: terminals,
		bindings:  bindings,
		cache:     cache,
		config:    config,
	}
}

func (s *service) Create(ctx context.Context, merchantID uint, name, credential string) (*models.Terminal, error) {
	name = strings.TrimSpace(name)
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	code, err := s.config.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate scan code: %w", err)
	}

	now := s.config.Now()
	terminal := &models.Terminal{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		Name:           name,
		CredentialHash: string(hash),
		ScanCode:       code,
		CodeRotatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.terminals.WithTx(tx)
		count, err := repo.CountByMerchant(ctx, merchantID)
		if err != nil {
			return err
		}
		if count >= int64(s.config.Limit) {
			return ErrTerminalLimitReached
		}
		if err := repo.Create(ctx, terminal); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrTerminalNameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("terminal %s (%q) registered for merchant %d", terminal.ID, name, merchantID)
	return terminal, nil
}

func (s *service) List(ctx context.Context, merchantID uint) ([]TerminalView, error) {
	terminals, err := s.terminals.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	views := make([]TerminalView, 0, len(terminals))
	for i := range terminals {
		view := TerminalView{Terminal: terminals[i]}
		binding, err := s.bindings.GetBySlot(ctx, models.SlotKey(merchantID, &terminals[i].ID))
		if err != nil {
			return nil, err
		}
		if binding != nil {
			id := binding.SessionID
			view.ActiveSessionID = &id
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *service) Remove(ctx context.Context, merchantID uint, terminalID uuid.UUID) error {
	var removed *models.Terminal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.terminals.WithTx(tx)
		terminal, err := s.ownedForUpdate(ctx, repo, merchantID, terminalID)
		if err != nil {
			return err
		}

		binding, err := s.bindings.WithTx(tx).GetBySlot(ctx, models.SlotKey(merchantID, &terminalID))
		if err != nil {
			return err
		}
		if binding != nil {
			return ErrTerminalBusy
		}

		if err := repo.RetireCode(ctx, &models.RetiredScanCode{
			Code:       terminal.ScanCode,
			MerchantID: merchantID,
			TerminalID: &terminal.ID,
			RetiredAt:  s.config.Now(),
		}); err != nil {
			return err
		}
		if err := repo.Delete(ctx, terminalID); err != nil {
			return err
		}
		removed = terminal
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, removed.ScanCode)
	log.Printf("terminal %s removed by merchant %d", terminalID, merchantID)
	return nil
}

func (s *service) RotateCode(ctx context.Context, merchantID uint, terminalID uuid.UUID) (*models.Terminal, error) {
	code, err := s.config.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate scan code: %w", err)
	}

	var (
		rotated *models.Terminal
		oldCode string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.terminals.WithTx(tx)
		terminal, err := s.ownedForUpdate(ctx, repo, merchantID, terminalID)
		if err != nil {
			return err
		}

		now := s.config.Now()
		if err := repo.RetireCode(ctx, &models.RetiredScanCode{
			Code:       terminal.ScanCode,
			MerchantID: merchantID,
			TerminalID: &terminal.ID,
			RetiredAt:  now,
		}); err != nil {
			return err
		}
		if err := repo.UpdateScanCode(ctx, terminal.ID, code, now); err != nil {
			return err
		}

		oldCode = terminal.ScanCode
		terminal.ScanCode = code
		terminal.CodeRotatedAt = now
		terminal.UpdatedAt = now
		rotated = terminal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldCode)
	log.Printf("scan code rotated for terminal %s", terminalID)
	return rotated, nil
}

func (s *service) Authenticate(ctx context.Context, terminalID uuid.UUID, credential string) (*models.Terminal, error) {
	terminal, err := s.terminals.GetByID(ctx, terminalID)
	if err != nil {
		if errors.Is(err, repositories.ErrTerminalNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(terminal.CredentialHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredential
	}
	return terminal, nil
}

// MerchantCode returns the merchant's counter code, creating it on first use.
func (s *service) MerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error) {
	existing, err := s.terminals.GetMerchantCode(ctx, merchantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrScanCodeNotFound) {
		return nil, err
	}

	code, err := s.config.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate scan code: %w", err)
	}
	now := s.config.Now()
	created := &models.MerchantScanCode{
		MerchantID:    merchantID,
		ScanCode:      code,
		CodeRotatedAt: now,
		CreatedAt:     now,
	}
	if err := s.terminals.SaveMerchantCode(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) RotateMerchantCode(ctx context.Context, merchantID uint) (*models.MerchantScanCode, error) {
	current, err := s.MerchantCode(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	code, err := s.config.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate scan code: %w", err)
	}

	oldCode := current.ScanCode
	now := s.config.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.terminals.WithTx(tx)
		if err := repo.RetireCode(ctx, &models.RetiredScanCode{
			Code:       oldCode,
			MerchantID: merchantID,
			RetiredAt:  now,
		}); err != nil {
			return err
		}
		current.ScanCode = code
		current.CodeRotatedAt = now
		return repo.SaveMerchantCode(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldCode)
	return current, nil
}

// ResolveScanCode maps a scanned payload to its merchant and terminal. A code
// that was rotated out yields ErrStaleScanCode; a code never issued yields
// ErrUnknownScanCode.
func (s *service) ResolveScanCode(ctx context.Context, code string) (*models.ScanTarget, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrUnknownScanCode
	}

	if s.cache != nil {
		if target, found, err := s.cache.GetScanTarget(ctx, code); err == nil && found {
			return target, nil
		} else if err != nil {
			log.Printf("scan code cache read failed: %v", err)
		}
	}

	target, err := s.lookup(ctx, s.terminals, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheScanTarget(ctx, code, target); err != nil {
			log.Printf("failed to cache scan code: %v", err)
		}
	}
	return target, nil
}

func (s *service) lookup(ctx context.Context, repo repositories.TerminalRepository, code string) (*models.ScanTarget, error) {
	terminal, err := repo.GetByScanCode(ctx, code)
	if err == nil {
		id := terminal.ID
		return &models.ScanTarget{MerchantID: terminal.MerchantID, TerminalID: &id}, nil
	}
	if !errors.Is(err, repositories.ErrTerminalNotFound) {
		return nil, err
	}

	counter, err := repo.GetMerchantCodeByCode(ctx, code)
	if err == nil {
		return &models.ScanTarget{MerchantID: counter.MerchantID}, nil
	}
	if !errors.Is(err, repositories.ErrScanCodeNotFound) {
		return nil, err
	}

	if _, err := repo.FindRetiredCode(ctx, code); err == nil {
		return nil, ErrStaleScanCode
	} else if !errors.Is(err, repositories.ErrScanCodeNotFound) {
		return nil, err
	}
	return nil, ErrUnknownScanCode
}

// BindSession claims the target's slot inside tx. When the request carries a
// scan code it is re-checked under the terminal row lock, so a rotation that
// committed after resolution still rejects the scan.
func (s *service) BindSession(ctx context.Context, tx *gorm.DB, req BindRequest) error {
	repo := s.terminals.WithTx(tx)
	target := req.Target

	if target.TerminalID != nil {
		terminal, err := repo.GetForUpdate(ctx, *target.TerminalID)
		if err != nil {
			if errors.Is(err, repositories.ErrTerminalNotFound) {
				if req.ScanCode != "" {
					return ErrStaleScanCode
				}
				return ErrTerminalNotFound
			}
			return err
		}
		if terminal.MerchantID != target.MerchantID {
			return ErrForbidden
		}
		if req.ScanCode != "" && terminal.ScanCode != req.ScanCode {
			return ErrStaleScanCode
		}
	} else if req.ScanCode != "" {
		current, err := repo.GetMerchantCode(ctx, target.MerchantID)
		if err != nil && !errors.Is(err, repositories.ErrScanCodeNotFound) {
			return err
		}
		if current == nil || current.ScanCode != req.ScanCode {
			return ErrStaleScanCode
		}
	}

	err := s.bindings.WithTx(tx).Bind(ctx, &models.SessionBinding{
		Slot:       models.SlotKey(target.MerchantID, target.TerminalID),
		MerchantID: target.MerchantID,
		TerminalID: target.TerminalID,
		SessionID:  req.SessionID,
		CreatedAt:  s.config.Now(),
	})
	if errors.Is(err, repositories.ErrSlotTaken) {
		return ErrTerminalBusy
	}
	return err
}

func (s *service) ReleaseSession(ctx context.Context, tx *gorm.DB, merchantID uint, terminalID *uuid.UUID, sessionID uuid.UUID) error {
	return s.bindings.WithTx(tx).Release(ctx, models.SlotKey(merchantID, terminalID), sessionID)
}

func (s *service) ownedForUpdate(ctx context.Context, repo repositories.TerminalRepository, merchantID uint, terminalID uuid.UUID) (*models.Terminal, error) {
	terminal, err := repo.GetForUpdate(ctx, terminalID)
	if err != nil {
		if errors.Is(err, repositories.ErrTerminalNotFound) {
			return nil, ErrTerminalNotFound
		}
		return nil, err
	}
	// another merchant's terminal is reported as missing
	if terminal.MerchantID != merchantID {
		return nil, ErrTerminalNotFound
	}
	return terminal, nil
}

func (s *service) invalidate(ctx context.Context, code string) {
	if s.cache == nil || code == "" {
		return
	}
	if err := s.cache.InvalidateScanCode(ctx, code); err != nil {
		log.Printf("failed to invalidate scan code cache: %v", err)
	}
}
