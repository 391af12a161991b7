package repositories

import (
	"context"
	"testing"
	"time"

	"tierpay/internal/models"
	"tierpay/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t, AutoMigrate)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicateKey(gorm.ErrRecordNotFound))
}

func TestBindingRepository_BindAndRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewBindingRepository(setupTestDB(t))

	terminalID := uuid.New()
	slot := models.SlotKey(7, &terminalID)
	first := uuid.New()

	require.NoError(t, repo.Bind(ctx, &models.SessionBinding{
		Slot: slot, MerchantID: 7, TerminalID: &terminalID, SessionID: first,
	}))

	err := repo.Bind(ctx, &models.SessionBinding{
		Slot: slot, MerchantID: 7, TerminalID: &terminalID, SessionID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// releasing with a foreign session id is a no-op
	require.NoError(t, repo.Release(ctx, slot, uuid.New()))
	held, err := repo.GetBySlot(ctx, slot)
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.Equal(t, first, held.SessionID)

	require.NoError(t, repo.Release(ctx, slot, first))
	held, err = repo.GetBySlot(ctx, slot)
	require.NoError(t, err)
	assert.Nil(t, held)

	require.NoError(t, repo.Bind(ctx, &models.SessionBinding{
		Slot: slot, MerchantID: 7, TerminalID: &terminalID, SessionID: uuid.New(),
	}))
}

// A rival bind that lands between the free-slot read and the insert must
// still lose on the primary key.
func TestBindingRepository_InsertConflictAfterFreeRead(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewBindingRepository(db)

	terminalID := uuid.New()
	slot := models.SlotKey(7, &terminalID)
	rival := uuid.New()

	var raced bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:rival_bind", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "session_bindings" {
			return
		}
		raced = true
		require.NoError(t, db.Session(&gorm.Session{NewDB: true}).Create(&models.SessionBinding{
			Slot: slot, MerchantID: 7, TerminalID: &terminalID, SessionID: rival,
		}).Error)
	}))

	err := repo.Bind(ctx, &models.SessionBinding{
		Slot: slot, MerchantID: 7, TerminalID: &terminalID, SessionID: uuid.New(),
	})
	require.True(t, raced, "the rival insert must run between read and insert")
	assert.ErrorIs(t, err, ErrSlotTaken)

	held, err := repo.GetBySlot(ctx, slot)
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.Equal(t, rival, held.SessionID)
}

func TestSessionRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	sess := &models.Session{
		MerchantID: 1,
		CustomerID: 2,
		Status:     models.SessionStatusAmountPending,
		Currency:   "USD",
	}
	require.NoError(t, repo.Create(ctx, sess))
	assert.Equal(t, int64(1), sess.Version)

	err := repo.CompareAndSwap(ctx, sess.ID, models.SessionStatusAmountPending, 1, map[string]interface{}{
		"status": models.SessionStatusCustomerReview,
		"amount": decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	// stale version
	err = repo.CompareAndSwap(ctx, sess.ID, models.SessionStatusAmountPending, 1, map[string]interface{}{
		"status": models.SessionStatusCancelled,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCustomerReview, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "100.00", got.Amount.StringFixed(2))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_ListActiveAndEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t))

	active := &models.Session{MerchantID: 3, CustomerID: 9, Status: models.SessionStatusAwaitingPayment, Currency: "USD"}
	done := &models.Session{MerchantID: 3, CustomerID: 9, Status: models.SessionStatusSettled, Currency: "USD"}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, done))

	list, err := repo.ListActiveByMerchant(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	list, err = repo.ListActiveByCustomer(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	idle, err := repo.ListIdle(ctx, []models.SessionStatus{models.SessionStatusAwaitingPayment}, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, idle, 1)

	require.NoError(t, repo.AppendEvent(ctx, &models.SessionEvent{
		SessionID: active.ID, Version: 1, Type: "session.created",
		ToStatus: models.SessionStatusAmountPending, Actor: "customer",
	}))
	err = repo.AppendEvent(ctx, &models.SessionEvent{
		SessionID: active.ID, Version: 1, Type: "session.created",
		ToStatus: models.SessionStatusAmountPending, Actor: "customer",
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	events, err := repo.ListEvents(ctx, active.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTerminalRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTerminalRepository(setupTestDB(t))

	term := &models.Terminal{MerchantID: 4, Name: "front", CredentialHash: "x", ScanCode: "code-1", CodeRotatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, term))

	dup := &models.Terminal{MerchantID: 4, Name: "front", CredentialHash: "x", ScanCode: "code-2"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	count, err := repo.CountByMerchant(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetByScanCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, term.ID, got.ID)

	require.NoError(t, repo.UpdateScanCode(ctx, term.ID, "code-3", time.Now().UTC()))
	require.NoError(t, repo.RetireCode(ctx, &models.RetiredScanCode{Code: "code-1", MerchantID: 4, TerminalID: &term.ID, RetiredAt: time.Now().UTC()}))

	_, err = repo.GetByScanCode(ctx, "code-1")
	assert.ErrorIs(t, err, ErrTerminalNotFound)
	retired, err := repo.FindRetiredCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, uint(4), retired.MerchantID)

	_, err = repo.FindRetiredCode(ctx, "never")
	assert.ErrorIs(t, err, ErrScanCodeNotFound)

	require.NoError(t, repo.Delete(ctx, term.ID))
	assert.ErrorIs(t, repo.Delete(ctx, term.ID), ErrTerminalNotFound)
}

func TestSettlementRepository_CreateSaleOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSettlementRepository(setupTestDB(t))

	sessionID := uuid.New()
	sale := &models.Sale{
		ID: uuid.New(), SessionID: sessionID, MerchantID: 1, CustomerID: 2, Currency: "USD",
		Amount: decimal.NewFromInt(100), UpfrontAmount: decimal.NewFromInt(30), FinancedAmount: decimal.NewFromInt(70),
		InstallmentCount: 1, SettledAt: time.Now().UTC(),
	}
	commitments := []models.InstallmentCommitment{{
		ID: uuid.New(), SaleID: sale.ID, SessionID: sessionID, SequenceIndex: 0, CustomerID: 2, MerchantID: 1,
		Principal: decimal.NewFromInt(70), DueDate: time.Now().UTC(), Status: models.CommitmentStatusPending,
	}}
	require.NoError(t, repo.CreateSale(ctx, sale, commitments))

	again := *sale
	again.ID = uuid.New()
	assert.ErrorIs(t, repo.CreateSale(ctx, &again, nil), ErrDuplicate)

	found, err := repo.FindSaleBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, found.ID)

	listed, err := repo.ListCommitments(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Principal.Equal(decimal.NewFromInt(70)))

	_, err = repo.FindSaleBySession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestPaymentMethodRepository_WithoutCache(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentMethodRepository(setupTestDB(t), nil)

	require.NoError(t, repo.Create(ctx, &models.PaymentMethod{MerchantID: 5, Channel: "bank_transfer", BankName: "First"}))
	require.NoError(t, repo.Create(ctx, &models.PaymentMethod{MerchantID: 5, Channel: "mobile_money", Phone: "555", IsDefault: true}))

	methods, err := repo.ListByMerchant(ctx, 5)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "mobile_money", methods[0].Channel)
}

func TestCreditProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCreditProfileRepository(setupTestDB(t))

	_, err := repo.GetByCustomer(ctx, 1)
	assert.ErrorIs(t, err, ErrCreditProfileNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.CreditProfile{CustomerID: 1, AccountCategory: "individual", Level: 2}))
	profile, err := repo.GetByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Level)
}
