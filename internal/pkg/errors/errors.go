package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeDatabase     = "DATABASE_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeAuthExpired  = "AUTH_EXPIRED"
	ErrCodeAccountState = "ACCOUNT_INACTIVE"
	ErrCodeSyncRunning  = "SYNC_ALREADY_RUNNING"
	ErrCodePersistence  = "PERSISTENCE_FAILURE"
	ErrCodeProviderAPI  = "PROVIDER_API_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// AuthenticationExpired signals that the refresh token was rejected and the
// account needs a fresh user-driven authorization. Terminal for the account.
func AuthenticationExpired(provider string, err error) *AppError {
	return Wrap(err, ErrCodeAuthExpired,
		fmt.Sprintf("%s authorization expired, reconnect required", provider),
		http.StatusUnauthorized)
}

// RateLimited creates a rate limited error carrying the provider's raw detail
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// AccountInactive signals the account is in reauth_required state
func AccountInactive(provider, accountID string) *AppError {
	return New(ErrCodeAccountState,
		fmt.Sprintf("%s account %s requires reauthentication", provider, accountID),
		http.StatusConflict)
}

// SyncAlreadyRunning signals a duplicate sync trigger for a running job
func SyncAlreadyRunning(provider, accountID string) *AppError {
	return New(ErrCodeSyncRunning,
		fmt.Sprintf("sync already running for %s account %s", provider, accountID),
		http.StatusConflict)
}

// PersistenceFailure wraps a batch commit error. Remaining batches are
// aborted and the watermark is left untouched.
func PersistenceFailure(err error) *AppError {
	return Wrap(err, ErrCodePersistence, "failed to persist record batch", http.StatusInternalServerError)
}

// ProviderAPIError creates a provider API error
func ProviderAPIError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		fmt.Sprintf("failed to communicate with %s API", provider),
		http.StatusBadGateway)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
