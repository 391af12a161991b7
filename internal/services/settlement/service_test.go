package settlement

import (
	"context"
	"testing"
	"time"

	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, Service) {
	db := testutil.NewDB(t, repositories.AutoMigrate)
	return db, NewService(repositories.NewSettlementRepository(db), Config{BillingPeriod: 24 * time.Hour})
}

func pendingSession(financed string, count int) *models.Session {
	fin := decimal.RequireFromString(financed)
	amount := decimal.NewFromInt(100)
	return &models.Session{
		ID:               uuid.New(),
		MerchantID:       1,
		CustomerID:       2,
		Status:           models.SessionStatusSettlementPending,
		Currency:         "USD",
		Amount:           amount,
		FinancedAmount:   fin,
		UpfrontAmount:    amount.Sub(fin),
		InstallmentCount: count,
		PaymentReference: "bank-123",
	}
}

func TestSettle_ScenarioA(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	sess := pendingSession("70", 3)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	var res *Result
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = svc.Settle(ctx, tx, sess, now)
		return err
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	assert.Equal(t, SaleID(sess.ID), res.Sale.ID)
	assert.Equal(t, "30.00", res.Sale.UpfrontAmount.StringFixed(2))
	require.Len(t, res.Commitments, 3)

	want := []string{"23.33", "23.33", "23.34"}
	for i, c := range res.Commitments {
		assert.Equal(t, want[i], c.Principal.StringFixed(2))
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, CommitmentID(sess.ID, i), c.ID)
		assert.True(t, c.DueDate.Equal(now.Add(time.Duration(i+1)*24*time.Hour)))
		assert.Equal(t, models.CommitmentStatusPending, c.Status)
	}
	assert.True(t, res.TotalCommitted().Equal(decimal.NewFromInt(70)))
}

func TestSettle_IsIdempotent(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	sess := pendingSession("70", 3)
	now := time.Now().UTC().Truncate(time.Second)

	settle := func() *Result {
		var res *Result
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = svc.Settle(ctx, tx, sess, now)
			return err
		}))
		return res
	}

	first := settle()
	second := settle()
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	require.Len(t, second.Commitments, 3)

	var sales, commitments int64
	db.Model(&models.Sale{}).Count(&sales)
	db.Model(&models.InstallmentCommitment{}).Count(&commitments)
	assert.Equal(t, int64(1), sales)
	assert.Equal(t, int64(3), commitments)

	looked, err := svc.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Sale.ID, looked.Sale.ID)
}

func TestSettle_CashSaleHasNoCommitments(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	sess := pendingSession("0", 3)

	var res *Result
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = svc.Settle(ctx, tx, sess, time.Now().UTC())
		return err
	}))
	assert.Empty(t, res.Commitments)
	assert.Equal(t, 0, res.Sale.InstallmentCount)
}

func TestSettle_RejectsUnfinishedSession(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	sess := pendingSession("70", 3)
	sess.Status = models.SessionStatusAwaitingPayment

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Settle(ctx, tx, sess, time.Now().UTC())
		return err
	})
	assert.ErrorIs(t, err, ErrNotSettleable)

	_, err = svc.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotSettled)
}

func TestDeterministicIDs(t *testing.T) {
	id := uuid.MustParse("5b7c2a4e-7a43-4a8e-9f57-0c9b3f2d6d11")
	assert.Equal(t, SaleID(id), SaleID(id))
	assert.NotEqual(t, SaleID(id), SaleID(uuid.New()))
	assert.NotEqual(t, CommitmentID(id, 0), CommitmentID(id, 1))
}

func TestListSales(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sess := pendingSession("0", 1)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Settle(ctx, tx, sess, time.Now().UTC())
			return err
		}))
	}

	sales, total, err := svc.ListSales(ctx, 1, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, sales, 2)
}
