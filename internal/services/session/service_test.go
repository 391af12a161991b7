package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tierpay/internal/domain/credit"
	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/services/notification"
	"tierpay/internal/services/settlement"
	"tierpay/internal/services/terminal"
	"tierpay/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubTiers struct {
	mu   sync.Mutex
	tier credit.Tier
	err  error
}

func (s *stubTiers) TierFor(ctx context.Context, customerID uint) (credit.Tier, credit.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tier, credit.CategoryIndividual, s.err
}

func (s *stubTiers) set(limit int64, upfront string, installments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tier = credit.Tier{
		Level:                1,
		CreditLimit:          decimal.NewFromInt(limit),
		MinUpfrontPercentage: decimal.RequireFromString(upfront),
		InstallmentCount:     installments,
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMetrics struct {
	NoopMetricsCollector
	mu         sync.Mutex
	rejections []string
}

func (m *recordingMetrics) RecordRejection(event, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, event+":"+code)
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	registry terminal.Service
	notifier notification.Service
	tiers    *stubTiers
	clock    *clock
	metrics  *recordingMetrics
}

func setup(t *testing.T, opts ...func(*Config)) *fixture {
	db := testutil.NewDB(t, repositories.AutoMigrate)

	registry := terminal.NewService(
		db,
		repositories.NewTerminalRepository(db),
		repositories.NewBindingRepository(db),
		nil,
		terminal.Config{BcryptCost: bcrypt.MinCost},
	)
	tiers := &stubTiers{}
	tiers.set(1000, "0.3", 3)
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	notifier := notification.NewService(notification.NewMemoryBroker(64))
	metrics := &recordingMetrics{}
	config := Config{Now: clk.Now}
	for _, opt := range opts {
		opt(&config)
	}

	svc := NewService(db, Dependencies{
		Sessions:       repositories.NewSessionRepository(db),
		Registry:       registry,
		Settlement:     settlement.NewService(repositories.NewSettlementRepository(db), settlement.Config{BillingPeriod: 24 * time.Hour}),
		Tiers:          tiers,
		PaymentMethods: repositories.NewPaymentMethodRepository(db, nil),
		Notifier:       notifier,
	}, config, metrics)

	return &fixture{db: db, svc: svc, registry: registry, notifier: notifier, tiers: tiers, clock: clk, metrics: metrics}
}

func (f *fixture) terminal(t *testing.T, merchantID uint, name string) *models.Terminal {
	term, err := f.registry.Create(context.Background(), merchantID, name, "secret1")
	require.NoError(t, err)
	return term
}

func (f *fixture) activeSession(t *testing.T, term *models.Terminal) uuid.UUID {
	views, err := f.registry.List(context.Background(), term.MerchantID)
	require.NoError(t, err)
	for _, v := range views {
		if v.ID == term.ID {
			if v.ActiveSessionID == nil {
				return uuid.Nil
			}
			return *v.ActiveSessionID
		}
	}
	t.Fatalf("terminal %s not listed", term.ID)
	return uuid.Nil
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewService_RequiresDeps(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, Dependencies{}, Config{}, nil) })
}

func TestScenarioA_FullLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	term := f.terminal(t, 1, "front")
	operator := TerminalActor(1, term.ID)
	customer := CustomerActor(42)

	require.NoError(t, repositories.NewPaymentMethodRepository(f.db, nil).Create(ctx, &models.PaymentMethod{
		MerchantID:    1,
		Channel:       "bank_transfer",
		BankName:      "First Bank",
		AccountNumber: "0001",
		IsDefault:     true,
	}))

	sess, err := f.svc.Scan(ctx, 42, term.ScanCode)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAmountPending, sess.Status)
	assert.Equal(t, int64(1), sess.Version)
	assert.Equal(t, sess.ID, f.activeSession(t, term))

	sess, err = f.svc.ProposeAmount(ctx, operator, sess.ID, amount("100"))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCustomerReview, sess.Status)
	assert.Equal(t, "30.00", sess.UpfrontAmount.StringFixed(2))
	assert.Equal(t, "70.00", sess.FinancedAmount.StringFixed(2))
	assert.Equal(t, 3, sess.InstallmentCount)

	view, err := f.svc.View(ctx, customer, sess.ID)
	require.NoError(t, err)
	require.Len(t, view.PaymentMethods, 1)
	require.Len(t, view.Schedule, 3)
	assert.Equal(t, "23.33", view.Schedule[0].StringFixed(2))
	assert.Equal(t, "23.33", view.Schedule[1].StringFixed(2))
	assert.Equal(t, "23.34", view.Schedule[2].StringFixed(2))

	_, err = f.svc.Approve(ctx, customer, sess.ID)
	require.NoError(t, err)

	sess, err = f.svc.ConfirmPayment(ctx, operator, sess.ID, " BANK-REF-1 ")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSettlementPending, sess.Status)
	assert.Equal(t, "BANK-REF-1", sess.PaymentReference)
	assert.Equal(t, "unverified", sess.ProofStatus)

	f.clock.Advance(time.Minute)
	res, err := f.svc.Finalize(ctx, operator, sess.ID)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, settlement.SaleID(sess.ID), res.Sale.ID)
	require.Len(t, res.Commitments, 3)
	settledAt := f.clock.Now()
	for i, c := range res.Commitments {
		assert.True(t, c.DueDate.Equal(settledAt.Add(time.Duration(i+1)*24*time.Hour)))
	}
	assert.True(t, res.TotalCommitted().Equal(amount("70")))
	assert.Equal(t, uuid.Nil, f.activeSession(t, term), "finalize frees the terminal")

	again, err := f.svc.Finalize(ctx, operator, sess.ID)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, res.Sale.ID, again.Sale.ID)
	assert.NotContains(t, f.metrics.rejections, "finalize:INVALID_TRANSITION", "a replayed finalize is not a rejection")

	var sales int64
	f.db.Model(&models.Sale{}).Count(&sales)
	assert.Equal(t, int64(1), sales)

	events, err := f.svc.Events(ctx, customer, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Version)
	}
	assert.Equal(t, models.SessionStatusSettled, events[4].ToStatus)

	view, err = f.svc.View(ctx, customer, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Settlement)
	assert.Empty(t, view.PaymentMethods)
}

func TestScenarioB_CreditCeiling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.tiers.set(50, "0.3", 3)

	sess, err := f.svc.StartWithoutTerminal(ctx, 1, 42)
	require.NoError(t, err)
	assert.Nil(t, sess.TerminalID)

	sess, err = f.svc.ProposeAmount(ctx, MerchantActor(1), sess.ID, amount("500"))
	require.NoError(t, err)
	assert.Equal(t, "450.00", sess.UpfrontAmount.StringFixed(2))
	assert.Equal(t, "50.00", sess.FinancedAmount.StringFixed(2))
}

func TestScenarioC_ConcurrentScansOneWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	term := f.terminal(t, 1, "front")

	const scanners = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		otherErrs []error
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(customerID uint) {
			defer wg.Done()
			_, err := f.svc.Scan(ctx, customerID, term.ScanCode)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrTerminalBusy):
			default:
				otherErrs = append(otherErrs, err)
			}
		}(uint(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Empty(t, otherErrs)

	var count int64
	f.db.Model(&models.Session{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestScenarioD_CancelInReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	term := f.terminal(t, 1, "front")

	sess, err := f.svc.Scan(ctx, 42, term.ScanCode)
	require.NoError(t, err)
	_, err = f.svc.ProposeAmount(ctx, TerminalActor(1, term.ID), sess.ID, amount("100"))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, CustomerActor(42), sess.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCancelled, cancelled.Status)
	assert.Equal(t, "customer", cancelled.CancelledBy)
	assert.Equal(t, uuid.Nil, f.activeSession(t, term))

	var commitments int64
	f.db.Model(&models.InstallmentCommitment{}).Count(&commitments)
	assert.Zero(t, commitments)

	_, err = f.svc.Settlement(ctx, CustomerActor(42), sess.ID)
	assert.ErrorIs(t, err, settlement.ErrNotSettled)

	_, err = f.svc.Scan(ctx, 43, term.ScanCode)
	assert.NoError(t, err, "the terminal accepts a new scan")

	_, err = f.svc.Cancel(ctx, CustomerActor(42), sess.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitions_RejectIllegalAndForeignActors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	front := f.terminal(t, 1, "front")
	back := f.terminal(t, 1, "back")

	sess, err := f.svc.Scan(ctx, 42, front.ScanCode)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, CustomerActor(42), sess.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ProposeAmount(ctx, CustomerActor(42), sess.ID, amount("10"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ProposeAmount(ctx, MerchantActor(2), sess.ID, amount("10"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ProposeAmount(ctx, TerminalActor(1, back.ID), sess.ID, amount("10"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Get(ctx, CustomerActor(7), sess.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ProposeAmount(ctx, MerchantActor(1), sess.ID, amount("-1"))
	assert.ErrorIs(t, err, ErrArithmeticPrecondition)

	_, err = f.svc.Finalize(ctx, MerchantActor(1), sess.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ConfirmPayment(ctx, MerchantActor(1), sess.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.Get(ctx, MerchantActor(1), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := f.svc.Get(ctx, MerchantActor(1), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAmountPending, got.Status)
	assert.Equal(t, int64(1), got.Version, "rejections leave the session untouched")

	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()
	assert.Contains(t, f.metrics.rejections, "approve:INVALID_TRANSITION")
	assert.Contains(t, f.metrics.rejections, "propose_amount:FORBIDDEN")
	assert.Contains(t, f.metrics.rejections, "finalize:INVALID_TRANSITION")
}

func TestProposeAmount_TierLookupFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.tiers.err = fmt.Errorf("%w: profile service down", ErrTierLookupFailed)

	sess, err := f.svc.StartWithoutTerminal(ctx, 1, 42)
	require.NoError(t, err)

	_, err = f.svc.ProposeAmount(ctx, MerchantActor(1), sess.ID, amount("100"))
	assert.ErrorIs(t, err, ErrTierLookupFailed)

	got, err := f.svc.Get(ctx, MerchantActor(1), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAmountPending, got.Status)
}

func TestProposeAmount_ReadsCreditProfileAtProposalTime(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	profiles := repositories.NewCreditProfileRepository(f.db)
	tables, err := credit.NewTables(
		&credit.Table{Category: credit.CategoryIndividual, Tiers: []credit.Tier{
			{Level: 1, CreditLimit: amount("100"), MinUpfrontPercentage: amount("0.5"), InstallmentCount: 2},
			{Level: 2, CreditLimit: amount("1000"), MinUpfrontPercentage: amount("0.3"), InstallmentCount: 3},
		}},
		&credit.Table{Category: credit.CategoryBusiness, Tiers: []credit.Tier{
			{Level: 1, CreditLimit: amount("500"), MinUpfrontPercentage: amount("0.2"), InstallmentCount: 3},
		}},
	)
	require.NoError(t, err)

	svc := NewService(f.db, Dependencies{
		Sessions:   repositories.NewSessionRepository(f.db),
		Registry:   f.registry,
		Settlement: settlement.NewService(repositories.NewSettlementRepository(f.db), settlement.Config{}),
		Tiers:      NewCreditTierProvider(profiles, tables),
	}, Config{}, nil)

	sess, err := svc.StartWithoutTerminal(ctx, 1, 42)
	require.NoError(t, err)

	_, err = svc.ProposeAmount(ctx, MerchantActor(1), sess.ID, amount("100"))
	assert.ErrorIs(t, err, ErrTierLookupFailed, "no credit profile yet")

	// the profile is upgraded after the scan but before the amount
	require.NoError(t, profiles.Upsert(ctx, &models.CreditProfile{
		CustomerID:          42,
		AccountCategory:     "individual",
		Level:               2,
		OutstandingFinanced: amount("960"),
	}))

	got, err := svc.ProposeAmount(ctx, MerchantActor(1), sess.ID, amount("100"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.TierLevel)
	assert.Equal(t, "individual", got.AccountCategory)
	assert.Equal(t, "40.00", got.FinancedAmount.StringFixed(2), "outstanding balance caps the limit")
	assert.Equal(t, "60.00", got.UpfrontAmount.StringFixed(2))

	q, err := svc.Quote(ctx, 42, amount("10"))
	require.NoError(t, err)
	assert.Equal(t, "7.00", q.Result.Financed.StringFixed(2))
	assert.Len(t, q.Schedule, 3)
}

func TestScan_StaleAndUnknownCodes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	term := f.terminal(t, 1, "front")
	old := term.ScanCode

	_, err := f.registry.RotateCode(ctx, 1, term.ID)
	require.NoError(t, err)

	_, err = f.svc.Scan(ctx, 42, old)
	assert.ErrorIs(t, err, terminal.ErrStaleScanCode)
	assert.NotErrorIs(t, err, ErrTerminalBusy)

	_, err = f.svc.Scan(ctx, 42, "never-issued")
	assert.ErrorIs(t, err, terminal.ErrUnknownScanCode)
}

func TestDefaultSlot_MerchantCodeAndDirectStartShareIt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	code, err := f.registry.MerchantCode(ctx, 1)
	require.NoError(t, err)

	sess, err := f.svc.Scan(ctx, 42, code.ScanCode)
	require.NoError(t, err)
	assert.Nil(t, sess.TerminalID)

	_, err = f.svc.StartWithoutTerminal(ctx, 1, 43)
	assert.ErrorIs(t, err, ErrTerminalBusy)

	// a terminal of the same merchant is a separate slot
	term := f.terminal(t, 1, "front")
	_, err = f.svc.Scan(ctx, 43, term.ScanCode)
	assert.NoError(t, err)

	active, err := f.svc.ListActive(ctx, MerchantActor(1))
	require.NoError(t, err)
	assert.Len(t, active, 2)

	mine, err := f.svc.ListActive(ctx, TerminalActor(1, term.ID))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint(43), mine[0].CustomerID)

	theirs, err := f.svc.ListActive(ctx, CustomerActor(42))
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestExpireIdle(t *testing.T) {
	f := setup(t, func(c *Config) { c.IdleTimeout = 30 * time.Minute })
	ctx := context.Background()
	front := f.terminal(t, 1, "front")
	back := f.terminal(t, 1, "back")
	operator := MerchantActor(1)

	idle, err := f.svc.Scan(ctx, 42, front.ScanCode)
	require.NoError(t, err)

	paid, err := f.svc.Scan(ctx, 43, back.ScanCode)
	require.NoError(t, err)
	_, err = f.svc.ProposeAmount(ctx, operator, paid.ID, amount("20"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, CustomerActor(43), paid.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, operator, paid.ID, "REF")
	require.NoError(t, err)

	n, err := f.svc.ExpireIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing has been idle long enough yet")

	f.clock.Advance(2 * time.Hour)
	n, err = f.svc.ExpireIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, operator, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCancelled, got.Status)
	assert.Equal(t, "system", got.CancelledBy)
	assert.Equal(t, uuid.Nil, f.activeSession(t, front))

	got, err = f.svc.Get(ctx, operator, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSettlementPending, got.Status, "paid sessions are never expired")
}

func TestExpireIdle_DisabledByZeroTimeout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	front := f.terminal(t, 1, "front")

	sess, err := f.svc.Scan(ctx, 42, front.ScanCode)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	n, err := f.svc.ExpireIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.svc.Get(ctx, MerchantActor(1), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAmountPending, got.Status)
}

func TestRunSweeper_StopsWithContext(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, f.svc, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestTransitions_PublishToBothParties(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	term := f.terminal(t, 1, "front")

	customerEvents, stopCustomer, err := f.notifier.Subscribe(ctx, notification.CustomerChannel(42))
	require.NoError(t, err)
	defer stopCustomer()
	merchantEvents, stopMerchant, err := f.notifier.Subscribe(ctx, notification.MerchantChannel(1))
	require.NoError(t, err)
	defer stopMerchant()

	sess, err := f.svc.Scan(ctx, 42, term.ScanCode)
	require.NoError(t, err)
	_, err = f.svc.ProposeAmount(ctx, TerminalActor(1, term.ID), sess.ID, amount("100"))
	require.NoError(t, err)

	for _, ch := range []<-chan notification.Event{customerEvents, merchantEvents} {
		first := <-ch
		assert.Equal(t, notification.EventSessionCreated, first.Type)
		second := <-ch
		assert.Equal(t, notification.EventAmountProposed, second.Type)
		assert.Equal(t, int64(2), second.Version)
		assert.Equal(t, "70.00", second.FinancedAmount.StringFixed(2))
	}
}
