package terminal

import domainErrors "tierpay/internal/errors"

var (
	ErrTerminalNotFound     = domainErrors.ErrTerminalNotFound
	ErrTerminalBusy         = domainErrors.ErrTerminalBusy
	ErrTerminalLimitReached = domainErrors.ErrTerminalLimitReached
	ErrTerminalNameTaken    = domainErrors.ErrTerminalNameTaken
	ErrStaleScanCode        = domainErrors.ErrStaleScanCode
	ErrUnknownScanCode      = domainErrors.ErrUnknownScanCode
	ErrInvalidCredential    = domainErrors.ErrInvalidCredential
	ErrForbidden            = domainErrors.ErrForbidden
)
