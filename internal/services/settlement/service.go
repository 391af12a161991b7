// Package settlement turns a finalized session into a sale record and its
// installment commitments.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/services/financing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	// Settle writes the records for sess inside tx. Calling it again for the
	// same session returns the stored records with Replayed set.
	Settle(ctx context.Context, tx *gorm.DB, sess *models.Session, settledAt time.Time) (*Result, error)
	// Lookup returns the stored result or ErrNotSettled.
	Lookup(ctx context.Context, sessionID uuid.UUID) (*Result, error)
	ListSales(ctx context.Context, merchantID uint, offset, limit int) ([]models.Sale, int64, error)
	ListCommitments(ctx context.Context, customerID uint) ([]models.InstallmentCommitment, error)
}

type service struct {
	repo   repositories.SettlementRepository
	config Config
}

func NewService(repo repositories.SettlementRepository, config Config) Service {
	if repo == nil {
		panic("settlement repository is required")
	}
	if config.BillingPeriod <= 0 {
		config.BillingPeriod = DefaultBillingPeriod
	}
	return &service{repo: repo, config: config}
}

func (s *service) Settle(ctx context.Context, tx *gorm.DB, sess *models.Session, settledAt time.Time) (*Result, error) {
	if sess == nil {
		return nil, ErrNotSettleable
	}
	repo := s.repo.WithTx(tx)

	if existing, err := s.load(ctx, repo, sess.ID); err == nil {
		existing.Replayed = true
		return existing, nil
	} else if !errors.Is(err, ErrNotSettled) {
		return nil, err
	}

	if sess.Status != models.SessionStatusSettlementPending && sess.Status != models.SessionStatusSettled {
		return nil, fmt.Errorf("%w: status %s", ErrNotSettleable, sess.Status)
	}

	sale, commitments, err := s.build(sess, settledAt)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateSale(ctx, &sale, commitments); err != nil {
		return nil, err
	}

	log.Printf("session %s settled: sale %s, %d commitments, financed %s",
		sess.ID, sale.ID, len(commitments), sale.FinancedAmount.StringFixed(financing.MinorUnits))
	return &Result{Sale: sale, Commitments: commitments}, nil
}

func (s *service) build(sess *models.Session, settledAt time.Time) (models.Sale, []models.InstallmentCommitment, error) {
	sale := models.Sale{
		ID:               SaleID(sess.ID),
		SessionID:        sess.ID,
		MerchantID:       sess.MerchantID,
		CustomerID:       sess.CustomerID,
		TerminalID:       sess.TerminalID,
		Currency:         sess.Currency,
		Amount:           sess.Amount,
		UpfrontAmount:    sess.UpfrontAmount,
		FinancedAmount:   sess.FinancedAmount,
		PaymentReference: sess.PaymentReference,
		SettledAt:        settledAt,
	}

	if !sess.FinancedAmount.IsPositive() || sess.InstallmentCount < 1 {
		return sale, nil, nil
	}

	principals := financing.Split(sess.FinancedAmount, sess.InstallmentCount)
	commitments := make([]models.InstallmentCommitment, len(principals))
	for i, p := range principals {
		commitments[i] = models.InstallmentCommitment{
			ID:            CommitmentID(sess.ID, i),
			SaleID:        sale.ID,
			SessionID:     sess.ID,
			SequenceIndex: i,
			CustomerID:    sess.CustomerID,
			MerchantID:    sess.MerchantID,
			Principal:     p,
			DueDate:       settledAt.Add(time.Duration(i+1) * s.config.BillingPeriod),
			Status:        models.CommitmentStatusPending,
		}
	}
	sale.InstallmentCount = len(commitments)

	result := Result{Commitments: commitments}
	if !result.TotalCommitted().Equal(sess.FinancedAmount) {
		return models.Sale{}, nil, ErrScheduleDrift
	}
	return sale, commitments, nil
}

func (s *service) Lookup(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	return s.load(ctx, s.repo, sessionID)
}

func (s *service) load(ctx context.Context, repo repositories.SettlementRepository, sessionID uuid.UUID) (*Result, error) {
	sale, err := repo.FindSaleBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSaleNotFound) {
			return nil, ErrNotSettled
		}
		return nil, err
	}
	commitments, err := repo.ListCommitments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Result{Sale: *sale, Commitments: commitments}, nil
}

func (s *service) ListSales(ctx context.Context, merchantID uint, offset, limit int) ([]models.Sale, int64, error) {
	return s.repo.ListSalesByMerchant(ctx, merchantID, offset, limit)
}

func (s *service) ListCommitments(ctx context.Context, customerID uint) ([]models.InstallmentCommitment, error) {
	return s.repo.ListCommitmentsByCustomer(ctx, customerID)
}
