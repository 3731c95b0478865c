package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidArgument  = errors.New("invalid_argument")
	ErrQuoteNotFound    = errors.New("quote_not_found")
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrQuoteCompleted   = errors.New("quote_completed")
	ErrQuoteAlreadyPaid = errors.New("quote_already_paid")
)

// ValidationError represents a rejected input: malformed values, ceiling
// violations and cross-field inconsistencies all use this one kind.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ValidationError as ErrInvalidArgument so callers can test with
// errors.Is without knowing the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
