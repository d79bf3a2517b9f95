package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema           ErrorType = "SCHEMA"
	ErrTypeMalformedDate    ErrorType = "MALFORMED_DATE"
	ErrTypeValueOutOfRange  ErrorType = "VALUE_OUT_OF_RANGE"
	ErrTypeInvalidFraction  ErrorType = "INVALID_FRACTION"
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// Sentinels for errors.Is. An AppError matches the sentinel of its Type.
var (
	ErrSchema           = &AppError{Type: ErrTypeSchema, Message: "schema error"}
	ErrMalformedDate    = &AppError{Type: ErrTypeMalformedDate, Message: "malformed date"}
	ErrValueOutOfRange  = &AppError{Type: ErrTypeValueOutOfRange, Message: "value out of range"}
	ErrInvalidFraction  = &AppError{Type: ErrTypeInvalidFraction, Message: "invalid fraction"}
	ErrInsufficientData = &AppError{Type: ErrTypeInsufficientData, Message: "insufficient data"}
	ErrStorage          = &AppError{Type: ErrTypeStorage, Message: "storage error"}
	ErrConfig           = &AppError{Type: ErrTypeConfig, Message: "configuration error"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}

	stack []byte
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// StackTrace returns the stack captured when the error was created.
func (e *AppError) StackTrace() []byte {
	return e.stack
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	var stack []byte
	if cause != nil {
		if se, ok := cause.(*goerrors.Error); ok {
			stack = se.Stack()
		} else {
			stack = goerrors.Wrap(cause, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
		stack:   stack,
	}
}

// Helper functions for common error types

// NewSchemaError creates an error for a missing or unusable input column set.
func NewSchemaError(message string) *AppError {
	return NewAppError(ErrTypeSchema, message, nil)
}

// NewMalformedDateError creates an error for a date cell that cannot be parsed.
func NewMalformedDateError(column string, row int, value string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedDate,
		fmt.Sprintf("column %s row %d: cannot parse %q", column, row, value), cause).
		WithContext("column", column).
		WithContext("row", row)
}

// NewValueOutOfRangeError creates an error for a derived value outside its modeled domain.
func NewValueOutOfRangeError(message string) *AppError {
	return NewAppError(ErrTypeValueOutOfRange, message, nil)
}

// NewInvalidFractionError creates an error for a split fraction outside (0,1).
func NewInvalidFractionError(fraction float64) *AppError {
	return NewAppError(ErrTypeInvalidFraction,
		fmt.Sprintf("test fraction must be in (0,1), got %v", fraction), nil).
		WithContext("fraction", fraction)
}

// NewInsufficientDataError creates an error for a dataset that cannot support the operation.
func NewInsufficientDataError(message string) *AppError {
	return NewAppError(ErrTypeInsufficientData, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Type
	}
	return ""
}
