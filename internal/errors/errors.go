// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataNotFound        = errors.New("market data not found")
	ErrExchangeUnavailable = errors.New("exchange unavailable")
	ErrPositionNotFound    = errors.New("position not found")
	ErrPositionExists      = errors.New("position already exists")
	ErrCircuitOpen         = errors.New("consecutive-loss circuit open")
	ErrSignalCooldown      = errors.New("signal cooldown in effect")
	ErrOutsideActiveHours  = errors.New("outside active trading hours")
	ErrAutoTradingDisabled = errors.New("auto trading disabled")
	ErrTimeout             = errors.New("operation timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrKeyNotFound         = errors.New("key not found")
)

// ValidationError represents a validation error on a signal or settings field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a market-data error. The signal engine converts these
// to HOLD signals rather than propagating them.
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
	if e.Err != nil {
		return e.Err
	}
	return ErrDataNotFound
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

// ExchangeError represents an error from the exchange API.
type ExchangeError struct {
	Operation string
	Symbol    string
	Err       error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error [%s] %s: %v", e.Operation, e.Symbol, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// NewExchangeError creates a new ExchangeError.
func NewExchangeError(operation, symbol string, err error) *ExchangeError {
	return &ExchangeError{
		Operation: operation,
		Symbol:    symbol,
		Err:       err,
	}
}

// ReconciliationError records a local store mutation whose confirming
// exchange call failed. The store state is still advanced; the gap is logged
// for operator review, never left as a dangling position.
type ReconciliationError struct {
	Symbol string
	Action string
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation gap [%s] %s: %v", e.Symbol, e.Action, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// NewReconciliationError creates a new ReconciliationError.
func NewReconciliationError(symbol, action string, err error) *ReconciliationError {
	return &ReconciliationError{
		Symbol: symbol,
		Action: action,
		Err:    err,
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
