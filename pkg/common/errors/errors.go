package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the goplumb library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a capacity limit was exceeded
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Pipeline run failures. A run that fails with any of these is aborted and
// returns no partial output.
var (
	// ErrReservedParameter indicates a run parameter that collides with a name
	// the engine hands to callbacks itself.
	ErrReservedParameter = errors.New("reserved parameter name")

	// ErrUnresolvedReference indicates a stage reference that cannot be resolved
	// in the current execution context.
	ErrUnresolvedReference = errors.New("unresolved stage reference")

	// ErrMissingRecord indicates a requirement on a stage that has not produced
	// a status yet.
	ErrMissingRecord = errors.New("referenced stage has no execution record")

	// ErrUnknownStage indicates a sequence identifier with no catalog entry.
	ErrUnknownStage = errors.New("identifier not found in catalog")

	// ErrForkTarget indicates a fork result that cannot be located in the sequence.
	ErrForkTarget = errors.New("fork target not found in sequence")
)

// ValidationError describes an invalid argument or configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError reports a failed operation of a component.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for module.operation caused by cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsTemporary returns true if the error indicates a temporary condition
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded)
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsRunFailure reports whether err aborted a pipeline run.
func IsRunFailure(err error) bool {
	return errors.Is(err, ErrReservedParameter) ||
		errors.Is(err, ErrUnresolvedReference) ||
		errors.Is(err, ErrMissingRecord) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrForkTarget)
}
