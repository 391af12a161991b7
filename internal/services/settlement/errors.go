package settlement

import (
	"errors"

	domainErrors "tierpay/internal/errors"
)

var ErrNotSettled = domainErrors.ErrNotSettled

var (
	ErrNotSettleable = errors.New("session is not ready for settlement")
	ErrScheduleDrift = errors.New("installment schedule does not add up to the financed amount")
)
