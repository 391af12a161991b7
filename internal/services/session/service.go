package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	domainErrors "tierpay/internal/errors"
	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/services/financing"
	"tierpay/internal/services/notification"
	"tierpay/internal/services/payment"
	"tierpay/internal/services/settlement"
	"tierpay/internal/services/terminal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dependencies groups the collaborators of the session service.
type Dependencies struct {
	Sessions   repositories.SessionRepository
	Registry   terminal.Service
	Settlement settlement.Service
	Tiers      TierProvider
	// Optional
	PaymentMethods PaymentMethodSource
	Notifier       notification.Service
	Proofs         ProofInspector
}

type service struct {
	db       *gorm.DB
	sessions repositories.SessionRepository
	registry terminal.Service
	settler  settlement.Service
	tiers    TierProvider
	methods  PaymentMethodSource
	notifier notification.Service
	proofs   ProofInspector
	config   Config
	metrics  MetricsCollector
}

// NewService creates a new session service
func NewService(db *gorm.DB, deps Dependencies, config Config, metrics MetricsCollector) Service {
	if db == nil {
		panic("db is required")
	}
	if deps.Sessions == nil {
		panic("session repository is required")
	}
	if deps.Registry == nil {
		panic("terminal registry is required")
	}
	if deps.Settlement == nil {
		panic("settlement service is required")
	}
	if deps.Tiers == nil {
		panic("tier provider is required")
	}

	if deps.Notifier == nil {
		deps.Notifier = notification.NewService(nil)
	}
	if deps.Proofs == nil {
		deps.Proofs = payment.NoopInspector{}
	}
	if config.Currency == "" {
		config.Currency = "USD"
	}
	if config.SweepBatch <= 0 {
		config.SweepBatch = 100
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		db:       db,
		sessions: deps.Sessions,
		registry: deps.Registry,
		settler:  deps.Settlement,
		tiers:    deps.Tiers,
		methods:  deps.PaymentMethods,
		notifier: deps.Notifier,
		proofs:   deps.Proofs,
		config:   config,
		metrics:  metrics,
	}
}

var eventTypes = map[Event]notification.EventType{
	EventScan:           notification.EventSessionCreated,
	EventStart:          notification.EventSessionCreated,
	EventProposeAmount:  notification.EventAmountProposed,
	EventApprove:        notification.EventSessionApproved,
	EventCancel:         notification.EventSessionCancelled,
	EventConfirmPayment: notification.EventPaymentConfirmed,
	EventFinalize:       notification.EventSessionSettled,
	EventExpire:         notification.EventSessionExpired,
}

// Scan opens a session on the terminal (or merchant counter) the code points at.
func (s *service) Scan(ctx context.Context, customerID uint, scanCode string) (*models.Session, error) {
	defer s.observe("scan", time.Now())

	target, err := s.registry.ResolveScanCode(ctx, scanCode)
	if err != nil {
		s.reject(EventScan, err)
		return nil, err
	}
	return s.open(ctx, EventScan, CustomerActor(customerID), *target, customerID, strings.TrimSpace(scanCode))
}

// StartWithoutTerminal lets a merchant open a session on its default slot
// for a customer it has identified directly.
func (s *service) StartWithoutTerminal(ctx context.Context, merchantID, customerID uint) (*models.Session, error) {
	defer s.observe("start", time.Now())

	if customerID == 0 {
		err := fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
		s.reject(EventStart, err)
		return nil, err
	}
	return s.open(ctx, EventStart, MerchantActor(merchantID), models.ScanTarget{MerchantID: merchantID}, customerID, "")
}

func (s *service) open(ctx context.Context, event Event, actor Actor, target models.ScanTarget, customerID uint, scanCode string) (*models.Session, error) {
	if !Permits(event, actor.Role) {
		s.reject(event, ErrForbidden)
		return nil, ErrForbidden
	}
	next, err := Next(statusNone, event)
	if err != nil {
		s.reject(event, err)
		return nil, err
	}

	now := s.config.Now()
	sess := &models.Session{
		ID:         uuid.New(),
		MerchantID: target.MerchantID,
		TerminalID: target.TerminalID,
		CustomerID: customerID,
		Status:     next,
		Currency:   s.config.Currency,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.registry.BindSession(ctx, tx, terminal.BindRequest{
			Target:    target,
			ScanCode:  scanCode,
			SessionID: sess.ID,
		}); err != nil {
			return err
		}
		repo := s.sessions.WithTx(tx)
		if err := repo.Create(ctx, sess); err != nil {
			return err
		}
		return repo.AppendEvent(ctx, s.eventRecord(event, statusNone, sess, actor, nil))
	})
	if err != nil {
		s.reject(event, err)
		return nil, err
	}

	s.committed(ctx, event, statusNone, sess)
	log.Printf("session %s opened for merchant %d customer %d", sess.ID, sess.MerchantID, customerID)
	return sess, nil
}

func (s *service) ProposeAmount(ctx context.Context, actor Actor, sessionID uuid.UUID, amount decimal.Decimal) (*models.Session, error) {
	defer s.observe("propose_amount", time.Now())

	return s.transition(ctx, actor, sessionID, mutation{
		event: EventProposeAmount,
		prepare: func(ctx context.Context, sess *models.Session) (map[string]interface{}, models.JSON, error) {
			// the tier is resolved at the moment of the proposal, never earlier
			tier, category, err := s.tiers.TierFor(ctx, sess.CustomerID)
			if err != nil {
				return nil, nil, err
			}
			res, err := financing.Compute(amount, tier)
			if err != nil {
				return nil, nil, err
			}

			sess.Amount = res.Subtotal
			sess.UpfrontAmount = res.Upfront
			sess.FinancedAmount = res.Financed
			sess.InstallmentAmount = res.InstallmentAmount
			sess.InstallmentCount = res.InstallmentCount
			sess.TierLevel = res.TierLevel
			sess.AccountCategory = category.String()

			updates := map[string]interface{}{
				"amount":             res.Subtotal,
				"upfront_amount":     res.Upfront,
				"financed_amount":    res.Financed,
				"installment_amount": res.InstallmentAmount,
				"installment_count":  res.InstallmentCount,
				"tier_level":         res.TierLevel,
				"account_category":   category.String(),
			}
			payload := models.JSON{
				"amount":            res.Subtotal.StringFixed(financing.MinorUnits),
				"upfront":           res.Upfront.StringFixed(financing.MinorUnits),
				"financed":          res.Financed.StringFixed(financing.MinorUnits),
				"installment_count": res.InstallmentCount,
				"tier_level":        res.TierLevel,
			}
			return updates, payload, nil
		},
	})
}

func (s *service) Approve(ctx context.Context, actor Actor, sessionID uuid.UUID) (*models.Session, error) {
	defer s.observe("approve", time.Now())

	return s.transition(ctx, actor, sessionID, mutation{event: EventApprove})
}

func (s *service) Cancel(ctx context.Context, actor Actor, sessionID uuid.UUID, reason string) (*models.Session, error) {
	defer s.observe("cancel", time.Now())

	return s.transition(ctx, actor, sessionID, s.cancellation(EventCancel, actor, reason))
}

func (s *service) cancellation(event Event, actor Actor, reason string) mutation {
	return mutation{
		event: event,
		prepare: func(ctx context.Context, sess *models.Session) (map[string]interface{}, models.JSON, error) {
			sess.CancelledBy = string(actor.Role)
			sess.CancelReason = strings.TrimSpace(reason)
			return map[string]interface{}{
					"cancelled_by":  sess.CancelledBy,
					"cancel_reason": sess.CancelReason,
				}, models.JSON{
					"reason": sess.CancelReason,
				}, nil
		},
		after: func(ctx context.Context, tx *gorm.DB, sess *models.Session) error {
			return s.registry.ReleaseSession(ctx, tx, sess.MerchantID, sess.TerminalID, sess.ID)
		},
	}
}

// ConfirmPayment records the operator's attestation that the upfront amount
// was received out of band. The processor lookup only annotates it.
func (s *service) ConfirmPayment(ctx context.Context, actor Actor, sessionID uuid.UUID, reference string) (*models.Session, error) {
	defer s.observe("confirm_payment", time.Now())

	reference = strings.TrimSpace(reference)
	if reference == "" {
		err := fmt.Errorf("%w: payment reference is required", ErrInvalidRequest)
		s.reject(EventConfirmPayment, err)
		return nil, err
	}

	return s.transition(ctx, actor, sessionID, mutation{
		event: EventConfirmPayment,
		prepare: func(ctx context.Context, sess *models.Session) (map[string]interface{}, models.JSON, error) {
			sess.PaymentReference = reference
			sess.ProofStatus = s.proofs.Inspect(ctx, reference)
			return map[string]interface{}{
					"payment_reference": sess.PaymentReference,
					"proof_status":      sess.ProofStatus,
				}, models.JSON{
					"reference":    sess.PaymentReference,
					"proof_status": sess.ProofStatus,
				}, nil
		},
	})
}

// Finalize settles the session. Finalizing an already settled session returns
// the original settlement instead of failing.
func (s *service) Finalize(ctx context.Context, actor Actor, sessionID uuid.UUID) (*settlement.Result, error) {
	defer s.observe("finalize", time.Now())

	var result *settlement.Result
	updated, from, err := s.apply(ctx, actor, sessionID, mutation{
		event: EventFinalize,
		after: func(ctx context.Context, tx *gorm.DB, sess *models.Session) error {
			res, err := s.settler.Settle(ctx, tx, sess, sess.UpdatedAt)
			if err != nil {
				return err
			}
			result = res
			return s.registry.ReleaseSession(ctx, tx, sess.MerchantID, sess.TerminalID, sess.ID)
		},
	})
	if err == nil {
		s.committed(ctx, EventFinalize, from, updated)
		s.metrics.RecordSettlement(result.Sale.FinancedAmount.InexactFloat64(), result.Replayed)
		return result, nil
	}

	if errors.Is(err, ErrInvalidTransition) {
		if prior := s.replay(ctx, actor, sessionID); prior != nil {
			s.metrics.RecordSettlement(prior.Sale.FinancedAmount.InexactFloat64(), true)
			return prior, nil
		}
	}
	s.reject(EventFinalize, err)
	return nil, err
}

// replay returns the stored settlement of an already settled session, or nil.
func (s *service) replay(ctx context.Context, actor Actor, sessionID uuid.UUID) *settlement.Result {
	sess, err := s.Get(ctx, actor, sessionID)
	if err != nil || sess.Status != models.SessionStatusSettled {
		return nil
	}
	prior, err := s.settler.Lookup(ctx, sessionID)
	if err != nil {
		return nil
	}
	prior.Replayed = true
	return prior
}

// ExpireIdle cancels sessions that have not moved for the configured idle
// timeout. Sessions awaiting settlement are left alone: money has already
// changed hands.
func (s *service) ExpireIdle(ctx context.Context) (int, error) {
	if s.config.IdleTimeout <= 0 {
		return 0, nil
	}

	cutoff := s.config.Now().Add(-s.config.IdleTimeout)
	idle, err := s.sessions.ListIdle(ctx, cancellable, cutoff, s.config.SweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range idle {
		_, err := s.transition(ctx, SystemActor, idle[i].ID, s.cancellation(EventExpire, SystemActor, "idle timeout"))
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		log.Printf("expired %d idle sessions", expired)
	}
	return expired, nil
}

// mutation describes one transition. prepare runs before the database
// transaction and may do slow lookups; after runs inside it.
type mutation struct {
	event   Event
	prepare func(ctx context.Context, sess *models.Session) (map[string]interface{}, models.JSON, error)
	after   func(ctx context.Context, tx *gorm.DB, sess *models.Session) error
}

func (s *service) transition(ctx context.Context, actor Actor, sessionID uuid.UUID, m mutation) (*models.Session, error) {
	updated, from, err := s.apply(ctx, actor, sessionID, m)
	if err != nil {
		s.reject(m.event, err)
		return nil, err
	}
	s.committed(ctx, m.event, from, updated)
	return updated, nil
}

func (s *service) apply(ctx context.Context, actor Actor, sessionID uuid.UUID, m mutation) (*models.Session, models.SessionStatus, error) {
	current, err := s.load(ctx, s.sessions, sessionID)
	if err != nil {
		return nil, statusNone, err
	}
	if err := authorize(actor, current); err != nil {
		return nil, statusNone, err
	}
	if !Permits(m.event, actor.Role) {
		return nil, statusNone, ErrForbidden
	}
	next, err := Next(current.Status, m.event)
	if err != nil {
		return nil, statusNone, err
	}

	updated := *current
	updated.Status = next
	updated.UpdatedAt = s.config.Now()

	updates := map[string]interface{}{}
	var payload models.JSON
	if m.prepare != nil {
		extra, p, err := m.prepare(ctx, &updated)
		if err != nil {
			return nil, statusNone, err
		}
		for k, v := range extra {
			updates[k] = v
		}
		payload = p
	}
	updates["status"] = next
	updates["updated_at"] = updated.UpdatedAt

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.sessions.WithTx(tx)
		if err := repo.CompareAndSwap(ctx, current.ID, current.Status, current.Version, updates); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				return fmt.Errorf("%w: session %s changed concurrently", ErrInvalidTransition, current.ID)
			}
			return err
		}
		updated.Version = current.Version + 1

		if m.after != nil {
			if err := m.after(ctx, tx, &updated); err != nil {
				return err
			}
		}
		return repo.AppendEvent(ctx, s.eventRecord(m.event, current.Status, &updated, actor, payload))
	})
	if err != nil {
		return nil, statusNone, err
	}
	return &updated, current.Status, nil
}

func (s *service) eventRecord(event Event, from models.SessionStatus, sess *models.Session, actor Actor, payload models.JSON) *models.SessionEvent {
	return &models.SessionEvent{
		ID:         uuid.New(),
		SessionID:  sess.ID,
		Version:    sess.Version,
		Type:       string(eventTypes[event]),
		FromStatus: from,
		ToStatus:   sess.Status,
		Actor:      string(actor.Role),
		ActorID:    actor.ID,
		Payload:    payload,
		CreatedAt:  sess.UpdatedAt,
	}
}

// committed runs once the transaction is durable.
func (s *service) committed(ctx context.Context, event Event, from models.SessionStatus, sess *models.Session) {
	s.metrics.RecordTransition(string(event), string(from), string(sess.Status))
	s.notifier.Publish(context.WithoutCancel(ctx), notification.NewEvent(eventTypes[event], sess, sess.UpdatedAt))
}

func (s *service) reject(event Event, err error) {
	code := "INTERNAL"
	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	s.metrics.RecordRejection(string(event), code)
}

func (s *service) observe(operation string, start time.Time) {
	s.metrics.RecordOperationDuration(operation, time.Since(start))
}

func (s *service) load(ctx context.Context, repo repositories.SessionRepository, sessionID uuid.UUID) (*models.Session, error) {
	sess, err := repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// authorize checks that actor is a party to sess.
func authorize(actor Actor, sess *models.Session) error {
	switch actor.Role {
	case RoleSystem:
		return nil
	case RoleMerchant:
		if sess.MerchantID != actor.ID {
			return ErrForbidden
		}
		if actor.TerminalID != nil && (sess.TerminalID == nil || *sess.TerminalID != *actor.TerminalID) {
			return ErrForbidden
		}
		return nil
	case RoleCustomer:
		if sess.CustomerID != actor.ID {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

func (s *service) Get(ctx context.Context, actor Actor, sessionID uuid.UUID) (*models.Session, error) {
	sess, err := s.load(ctx, s.sessions, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// View adds what the viewer needs for the current step: payment
// instructions while money is due, the schedule once an amount exists and
// the settlement once it is final.
func (s *service) View(ctx context.Context, actor Actor, sessionID uuid.UUID) (*View, error) {
	sess, err := s.Get(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	view := &View{Session: *sess}
	if sess.FinancedAmount.IsPositive() && sess.InstallmentCount > 0 {
		view.Schedule = financing.Split(sess.FinancedAmount, sess.InstallmentCount)
	}

	switch sess.Status {
	case models.SessionStatusCustomerReview, models.SessionStatusAwaitingPayment:
		if s.methods != nil {
			methods, err := s.methods.ListByMerchant(ctx, sess.MerchantID)
			if err != nil {
				log.Printf("payment methods for merchant %d: %v", sess.MerchantID, err)
			} else {
				view.PaymentMethods = methods
			}
		}
	case models.SessionStatusSettled:
		res, err := s.settler.Lookup(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		view.Settlement = res
	}
	return view, nil
}

func (s *service) Events(ctx context.Context, actor Actor, sessionID uuid.UUID) ([]models.SessionEvent, error) {
	if _, err := s.Get(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListEvents(ctx, sessionID)
}

func (s *service) Settlement(ctx context.Context, actor Actor, sessionID uuid.UUID) (*settlement.Result, error) {
	if _, err := s.Get(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	return s.settler.Lookup(ctx, sessionID)
}

// ListActive returns the non-terminal sessions the actor is a party to. A
// terminal operator only sees its own terminal.
func (s *service) ListActive(ctx context.Context, actor Actor) ([]models.Session, error) {
	switch actor.Role {
	case RoleCustomer:
		return s.sessions.ListActiveByCustomer(ctx, actor.ID)
	case RoleMerchant:
		all, err := s.sessions.ListActiveByMerchant(ctx, actor.ID)
		if err != nil || actor.TerminalID == nil {
			return all, err
		}
		mine := make([]models.Session, 0, len(all))
		for _, sess := range all {
			if sess.TerminalID != nil && *sess.TerminalID == *actor.TerminalID {
				mine = append(mine, sess)
			}
		}
		return mine, nil
	}
	return nil, ErrForbidden
}

// Quote previews the split a customer would get for amount right now.
func (s *service) Quote(ctx context.Context, customerID uint, amount decimal.Decimal) (*Quote, error) {
	tier, category, err := s.tiers.TierFor(ctx, customerID)
	if err != nil {
		return nil, err
	}
	res, err := financing.Compute(amount, tier)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Category: category,
		Tier:     tier,
		Result:   res,
		Schedule: res.Schedule(),
	}, nil
}
