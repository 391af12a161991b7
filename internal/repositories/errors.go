package repositories

import "errors"

var (
	ErrTerminalNotFound      = errors.New("terminal not found")
	ErrScanCodeNotFound      = errors.New("scan code not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrCreditProfileNotFound = errors.New("credit profile not found")
	ErrDuplicate             = errors.New("record already exists")
	ErrSlotTaken             = errors.New("terminal slot already bound")
	ErrVersionConflict       = errors.New("session changed concurrently")
	ErrDatabaseOperation     = errors.New("database operation failed")
)
