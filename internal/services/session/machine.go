package session

import (
	"fmt"

	"tierpay/internal/models"
)

// Event names a transition request.
type Event string

const (
	EventScan           Event = "scan"
	EventStart          Event = "start"
	EventProposeAmount  Event = "propose_amount"
	EventApprove        Event = "approve"
	EventCancel         Event = "cancel"
	EventConfirmPayment Event = "confirm_payment"
	EventFinalize       Event = "finalize"
	EventExpire         Event = "expire"
)

// statusNone is the virtual state before a session exists.
const statusNone models.SessionStatus = ""

type rule struct {
	from  []models.SessionStatus
	to    models.SessionStatus
	roles []Role
}

var cancellable = []models.SessionStatus{
	models.SessionStatusAmountPending,
	models.SessionStatusCustomerReview,
	models.SessionStatusAwaitingPayment,
}

var rules = map[Event]rule{
	EventScan:           {from: []models.SessionStatus{statusNone}, to: models.SessionStatusAmountPending, roles: []Role{RoleCustomer}},
	EventStart:          {from: []models.SessionStatus{statusNone}, to: models.SessionStatusAmountPending, roles: []Role{RoleMerchant}},
	EventProposeAmount:  {from: []models.SessionStatus{models.SessionStatusAmountPending}, to: models.SessionStatusCustomerReview, roles: []Role{RoleMerchant}},
	EventApprove:        {from: []models.SessionStatus{models.SessionStatusCustomerReview}, to: models.SessionStatusAwaitingPayment, roles: []Role{RoleCustomer}},
	EventCancel:         {from: cancellable, to: models.SessionStatusCancelled, roles: []Role{RoleMerchant, RoleCustomer}},
	EventConfirmPayment: {from: []models.SessionStatus{models.SessionStatusAwaitingPayment}, to: models.SessionStatusSettlementPending, roles: []Role{RoleMerchant}},
	EventFinalize:       {from: []models.SessionStatus{models.SessionStatusSettlementPending}, to: models.SessionStatusSettled, roles: []Role{RoleMerchant}},
	EventExpire:         {from: cancellable, to: models.SessionStatusCancelled, roles: []Role{RoleSystem}},
}

// Next returns the status event leads to from current, or ErrInvalidTransition.
func Next(current models.SessionStatus, event Event) (models.SessionStatus, error) {
	r, ok := rules[event]
	if !ok {
		return statusNone, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}
	for _, from := range r.from {
		if from == current {
			return r.to, nil
		}
	}
	return statusNone, fmt.Errorf("%w: %s not allowed from %s", ErrInvalidTransition, event, displayStatus(current))
}

// Permits reports whether role may request event.
func Permits(event Event, role Role) bool {
	for _, allowed := range rules[event].roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func displayStatus(s models.SessionStatus) string {
	if s == statusNone {
		return "NONE"
	}
	return string(s)
}
