package errors

import (
	"errors"
	"fmt"
)

var (
	// Transaction errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrInvalidAmount           = errors.New("invalid amount")

	// Refund errors
	ErrRefundNotFound      = errors.New("refund not found")
	ErrNotRefundable       = errors.New("transaction cannot be refunded")
	ErrRefundLimitExceeded = errors.New("refund amount exceeds remaining balance")

	// Processor errors
	ErrProcessorNotFound = errors.New("payment processor not found")
	ErrProcessorTimeout  = errors.New("processor request timeout")
	ErrProcessorRejected = errors.New("payment rejected by processor")

	// Idempotency index errors
	ErrIndexDivergence = errors.New("idempotency index references missing transaction")

	// Webhook errors
	ErrEventNotFound = errors.New("webhook event not found")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
