package core

import "fmt"

// Error is a structured error with a stable code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors. Configuration and data-integrity failures are
// fatal to a run and are never retried.
var (
	// Configuration errors
	ErrConfigInvalid        = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrUnsupportedOperator  = &Error{Code: "UNSUPPORTED_OPERATOR", Message: "unsupported comparison operator"}
	ErrUnknownIndicator     = &Error{Code: "UNKNOWN_INDICATOR", Message: "indicator not registered"}
	ErrMissingTradingWindow = &Error{Code: "MISSING_TRADING_WINDOW", Message: "no trading window configured for date"}

	// Data-integrity errors
	ErrNoExecutionCandle = &Error{Code: "NO_EXECUTION_CANDLE", Message: "no candle found at execution timestamp"}
	ErrNoOpenPosition    = &Error{Code: "NO_OPEN_POSITION", Message: "no open position to exit"}
	ErrLedgerNotFound    = &Error{Code: "LEDGER_NOT_FOUND", Message: "tradable instrument not found"}

	// Input-validation errors
	ErrInvalidInput     = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrInvalidDateRange = &Error{Code: "INVALID_DATE_RANGE", Message: "start date is after end date"}

	// Collaborator failures
	ErrDataSource = &Error{Code: "DATA_SOURCE_FAILED", Message: "historical data source failed"}
	ErrNoData     = &Error{Code: "NO_DATA", Message: "no data available"}
)
