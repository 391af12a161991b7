// Package errors holds the domain error taxonomy shared by services and handlers.
package errors

import "net/http"

// DomainError is a recoverable, user-facing failure with a stable code.
type DomainError struct {
	Code    string
	Message string
	Status  int
	// Parent lets a narrower error match a broader one via errors.Is.
	Parent *DomainError
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the parent category.
func (e *DomainError) Unwrap() error {
	if e.Parent == nil {
		return nil
	}
	return e.Parent
}

// HTTPStatus returns the status a handler should answer with.
func (e *DomainError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

var (
	ErrInvalidRequest = &DomainError{
		Code:    "INVALID_REQUEST",
		Message: "invalid request",
		Status:  http.StatusBadRequest,
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "not a party to this resource",
		Status:  http.StatusForbidden,
	}
	ErrUnauthenticated = &DomainError{
		Code:    "UNAUTHENTICATED",
		Message: "authentication required",
		Status:  http.StatusUnauthorized,
	}
	ErrInvalidCredential = &DomainError{
		Code:    "INVALID_CREDENTIAL",
		Message: "invalid terminal credential",
		Status:  http.StatusUnauthorized,
	}
)
