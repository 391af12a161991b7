package errors

import "net/http"

var (
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "transition not allowed from the current session state",
		Status:  http.StatusConflict,
	}
	ErrTerminalBusy = &DomainError{
		Code:    "TERMINAL_BUSY",
		Message: "terminal already has an active session",
		Status:  http.StatusConflict,
		Parent:  ErrInvalidTransition,
	}
	ErrSessionNotFound = &DomainError{
		Code:    "SESSION_NOT_FOUND",
		Message: "session not found",
		Status:  http.StatusNotFound,
	}
	ErrTierLookupFailed = &DomainError{
		Code:    "TIER_LOOKUP_FAILED",
		Message: "customer has no resolvable credit tier",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrArithmeticPrecondition = &DomainError{
		Code:    "ARITHMETIC_PRECONDITION",
		Message: "amount must be a finite, non-negative number within range",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrNotSettled = &DomainError{
		Code:    "NOT_SETTLED",
		Message: "session has no settlement yet",
		Status:  http.StatusNotFound,
	}
	ErrInvalidTier = &DomainError{
		Code:    "INVALID_TIER",
		Message: "credit tier is malformed",
		Status:  http.StatusUnprocessableEntity,
	}
)

var (
	ErrStaleScanCode = &DomainError{
		Code:    "STALE_SCAN_CODE",
		Message: "scan code has been rotated; ask the merchant to redisplay it",
		Status:  http.StatusGone,
	}
	ErrUnknownScanCode = &DomainError{
		Code:    "UNKNOWN_SCAN_CODE",
		Message: "scan code not recognised",
		Status:  http.StatusNotFound,
	}
	ErrTerminalNotFound = &DomainError{
		Code:    "TERMINAL_NOT_FOUND",
		Message: "terminal not found",
		Status:  http.StatusNotFound,
	}
	ErrTerminalLimitReached = &DomainError{
		Code:    "TERMINAL_LIMIT_REACHED",
		Message: "merchant terminal limit reached",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrTerminalNameTaken = &DomainError{
		Code:    "TERMINAL_NAME_TAKEN",
		Message: "a terminal with this name already exists",
		Status:  http.StatusConflict,
	}
)
