// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrDataNotFound     = errors.New("data not found")
	ErrDuplicate        = errors.New("already exists")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrInputValidation  = errors.New("input validation failed")
)

// ValidationError represents a validation error on caller input.
// Kind is the sentinel the error matches under errors.Is.
type ValidationError struct {
	Kind    error
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%v: %s (%v): %s", e.Kind, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// InvalidPosition reports a non-positive price, strike or quantity.
func InvalidPosition(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Kind:    ErrInvalidPosition,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// InvalidScenario reports an unrecognised scenario kind.
func InvalidScenario(kind string) *ValidationError {
	return &ValidationError{
		Kind:    ErrInvalidScenario,
		Field:   "scenario_type",
		Value:   kind,
		Message: "must be one of price_up, price_down, volatility_increase, time_decay",
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// QuoteError represents a failure from a quote provider.
type QuoteError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote error [%s] %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// NewQuoteError creates a new QuoteError.
func NewQuoteError(provider, symbol string, err error) *QuoteError {
	return &QuoteError{
		Provider: provider,
		Symbol:   symbol,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
