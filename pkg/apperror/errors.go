package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code, so errors.Is works with the
// constructor-produced values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Transaction Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Transaction amount must be a positive integer below the configured maximum", http.StatusBadRequest)
}

func ErrMalformedAccount(field string) *AppError {
	return New("VAL_002", fmt.Sprintf("Malformed account identifier: %s", field), http.StatusBadRequest)
}

func ErrNoLocalAccount() *AppError {
	return New("VAL_003", "Neither account is held at this bank", http.StatusBadRequest)
}

func ErrInvalidTransactionID() *AppError {
	return New("VAL_004", "Transaction ID must be a valid non-nil UUID", http.StatusBadRequest)
}

// ---- Ledger Business Logic (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient balance in sender account", http.StatusPaymentRequired)
}

// ErrAlreadyProcessed signals an idempotency hit: the transaction ID was
// committed by an earlier submission. Success-shaped; callers receive the
// original ledger entry alongside this error.
func ErrAlreadyProcessed() *AppError {
	return New("LED_002", "Transaction already processed", http.StatusOK)
}

func ErrEntryNotFound() *AppError {
	return New("LED_003", "Ledger entry not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountMismatch() *AppError {
	return New("AUTH_002", "Authenticated account does not match the requested account", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageUnavailable wraps a ledger storage failure. Retriable by the
// caller with backoff.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Ledger storage unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a VAL_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
