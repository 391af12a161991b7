package session

import domainErrors "tierpay/internal/errors"

var (
	ErrInvalidTransition      = domainErrors.ErrInvalidTransition
	ErrTerminalBusy           = domainErrors.ErrTerminalBusy
	ErrSessionNotFound        = domainErrors.ErrSessionNotFound
	ErrTierLookupFailed       = domainErrors.ErrTierLookupFailed
	ErrArithmeticPrecondition = domainErrors.ErrArithmeticPrecondition
	ErrForbidden              = domainErrors.ErrForbidden
	ErrInvalidRequest         = domainErrors.ErrInvalidRequest
)
