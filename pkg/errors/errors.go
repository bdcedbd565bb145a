// Package errors defines the structured error type used across the Pokedex Auth Service.
// Every error carries a stable machine code, a human-readable message that is safe to return
// to clients, and the HTTP status it maps to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ================================================================================
// Error Codes
// ================================================================================

const (
	CodeTokenExpired            = "token_expired"
	CodeTokenMalformed          = "token_malformed"
	CodeVerificationUnavailable = "verification_unavailable"
	CodeKeyFetch                = "key_fetch_error"
	CodeSigning                 = "signing_error"
	CodeKeyMaterial             = "key_material_error"
	CodeUnauthenticated         = "unauthenticated"
	CodeForbidden               = "forbidden"
	CodeInvalidCredentials      = "invalid_credentials"
	CodeCurrentPassword         = "current_password_invalid"
	CodeCurrentPasswordRequired = "current_password_required"
	CodeSelfDelete              = "self_delete"
	CodeLastAdmin               = "last_administrator"
	CodeAccountDisabled         = "account_disabled"
	CodeConflict                = "conflict"
	CodeNotFound                = "not_found"
	CodeValidation              = "validation_failed"
	CodeInvalidRequest          = "invalid_request"
	CodeRateLimitExceeded       = "rate_limit_exceeded"
	CodeInternal                = "internal_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError is a structured error with a client-safe message.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]string
	cause      error
}

// New creates a new AppError.
func New(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithError returns a copy of e wrapping cause.
func (e *AppError) WithError(cause error) *AppError {
	cp := e.clone()
	cp.cause = cause
	return cp
}

// WithMessage returns a copy of e with a different client message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := e.clone()
	cp.Message = message
	return cp
}

// WithDetails returns a copy of e carrying per-field details.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	cp := e.clone()
	cp.Details = details
	return cp
}

func (e *AppError) clone() *AppError {
	cp := *e
	if e.Details != nil {
		cp.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// Token verification
	ErrTokenExpired            = New(CodeTokenExpired, http.StatusUnauthorized, "Token has expired")
	ErrTokenMalformed          = New(CodeTokenMalformed, http.StatusUnauthorized, "Invalid token")
	ErrVerificationUnavailable = New(CodeVerificationUnavailable, http.StatusServiceUnavailable, "Unable to fetch public key for token validation")
	ErrKeyFetch                = New(CodeKeyFetch, http.StatusServiceUnavailable, "Failed to fetch public key")

	// Key material and signing
	ErrSigning     = New(CodeSigning, http.StatusInternalServerError, "Failed to generate authentication token")
	ErrKeyMaterial = New(CodeKeyMaterial, http.StatusInternalServerError, "Signing key material is unavailable")

	// Authentication pipeline
	ErrMissingAuthHeader  = New(CodeUnauthenticated, http.StatusUnauthorized, "Authorization header is required")
	ErrMissingBearerToken = New(CodeUnauthenticated, http.StatusUnauthorized, "Bearer token is required")
	ErrUnauthenticated    = New(CodeUnauthenticated, http.StatusUnauthorized, "Authentication required")
	ErrForbidden          = New(CodeForbidden, http.StatusForbidden, "Insufficient permissions")

	// Credentials and accounts
	ErrInvalidCredentials      = New(CodeInvalidCredentials, http.StatusUnauthorized, "Invalid email or password")
	ErrAccountDisabled         = New(CodeAccountDisabled, http.StatusForbidden, "Account is disabled")
	ErrCurrentPasswordRequired = New(CodeCurrentPasswordRequired, http.StatusBadRequest, "Current password is required to change password")
	ErrCurrentPasswordInvalid  = New(CodeCurrentPassword, http.StatusUnauthorized, "Current password is incorrect")
	ErrEmailExists             = New(CodeConflict, http.StatusConflict, "User with this email already exists")
	ErrUserNotFound            = New(CodeNotFound, http.StatusNotFound, "User not found")
	ErrSelfDelete              = New(CodeSelfDelete, http.StatusBadRequest, "You cannot delete your own account")
	ErrLastAdmin               = New(CodeLastAdmin, http.StatusBadRequest, "Cannot delete the last administrator")
	ErrLastAdminDemotion       = New(CodeLastAdmin, http.StatusBadRequest, "Cannot remove the last administrator")

	// Generic
	ErrValidation        = New(CodeValidation, http.StatusBadRequest, "Validation failed")
	ErrInvalidRequest    = New(CodeInvalidRequest, http.StatusBadRequest, "Invalid request")
	ErrRateLimitExceeded = New(CodeRateLimitExceeded, http.StatusTooManyRequests, "Too many requests, please try again later")
	ErrInternal          = New(CodeInternal, http.StatusInternalServerError, "Internal server error")
)

// ================================================================================
// Helpers
// ================================================================================

// FromError returns err as an *AppError. Errors that are not AppErrors are wrapped as
// ErrInternal so their text never reaches a client.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithError(err)
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus returns the status err maps to, 500 for unknown errors.
func HTTPStatus(err error) int {
	if appErr := FromError(err); appErr != nil {
		return appErr.HTTPStatus
	}
	return http.StatusOK
}
