package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{"schema error type", ErrTypeSchema, "SCHEMA"},
		{"malformed date error type", ErrTypeMalformedDate, "MALFORMED_DATE"},
		{"value out of range error type", ErrTypeValueOutOfRange, "VALUE_OUT_OF_RANGE"},
		{"invalid fraction error type", ErrTypeInvalidFraction, "INVALID_FRACTION"},
		{"insufficient data error type", ErrTypeInsufficientData, "INSUFFICIENT_DATA"},
		{"storage error type", ErrTypeStorage, "STORAGE"},
		{"config error type", ErrTypeConfig, "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeSchema,
				Message: "missing columns: Geburtsdatum",
			},
			wantMessage: "[SCHEMA] missing columns: Geburtsdatum",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "write report",
				Cause:   fmt.Errorf("disk full"),
			},
			wantMessage: "[STORAGE] write report: disk full",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type: ErrTypeConfig,
			},
			wantMessage: "[CONFIG] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"schema matches sentinel", NewSchemaError("x"), ErrSchema, true},
		{"schema does not match date", NewSchemaError("x"), ErrMalformedDate, false},
		{"wrapped with fmt", fmt.Errorf("load: %w", NewInvalidFractionError(1.5)), ErrInvalidFraction, true},
		{"cause chain", NewStorageError("write", NewInsufficientDataError("empty")), ErrInsufficientData, true},
		{"plain error", errors.New("boom"), ErrSchema, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := NewStorageError("write", cause)

	assert.Same(t, cause, err.Unwrap())
	assert.Nil(t, NewSchemaError("no cause").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeValueOutOfRange, Message: "age"}
	require.Nil(t, err.Context)

	got := err.WithContext("row", 3).WithContext("age", 101.5)

	assert.Same(t, err, got)
	assert.Equal(t, 3, err.Context["row"])
	assert.Equal(t, 101.5, err.Context["age"])
}

func TestConstructors(t *testing.T) {
	t.Run("malformed date carries location", func(t *testing.T) {
		err := NewMalformedDateError("Eintrittsdatum", 4, "2020-13-01", errors.New("month out of range"))

		assert.Equal(t, ErrTypeMalformedDate, err.Type)
		assert.Equal(t, "Eintrittsdatum", err.Context["column"])
		assert.Equal(t, 4, err.Context["row"])
		assert.Contains(t, err.Error(), `"2020-13-01"`)
	})

	t.Run("invalid fraction carries value", func(t *testing.T) {
		err := NewInvalidFractionError(0)

		assert.Equal(t, ErrTypeInvalidFraction, err.Type)
		assert.Equal(t, 0.0, err.Context["fraction"])
	})

	t.Run("stack is captured", func(t *testing.T) {
		assert.NotEmpty(t, NewInsufficientDataError("one class").StackTrace())
		assert.NotEmpty(t, NewConfigError("bad", errors.New("cause")).StackTrace())
	})
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeSchema, TypeOf(fmt.Errorf("wrap: %w", NewSchemaError("x"))))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
