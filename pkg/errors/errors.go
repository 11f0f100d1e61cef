package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes used across the gateway. The taxonomy separates the caller's
// fault (bad request), the provider's verdict (invalid grant, invalid token),
// the provider being unreachable (timeout/unavailable), and local faults
// (directory lookup), so handlers can map each to the right status and the
// frontend can decide between "log in again" and "retry".
const (
	// Generic errors
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// Grant errors reported by the identity provider
	ErrCodeInvalidGrant ErrorCode = "INVALID_GRANT"

	// Token validation errors
	ErrCodeTokenInvalid          ErrorCode = "TOKEN_INVALID"
	ErrCodeTokenExpired          ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenValidationFailed ErrorCode = "TOKEN_VALIDATION_FAILED"

	// Upstream (identity provider) transport errors
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// Local directory errors. "User not found" is NOT an error code:
	// an unknown subject is a valid lookup outcome.
	ErrCodeDirectoryLookupFailed ErrorCode = "DIRECTORY_LOOKUP_FAILED"

	// Authorization errors
	ErrCodePolicyDenied ErrorCode = "POLICY_DENIED"

	// State transport errors
	ErrCodeMalformedState  ErrorCode = "MALFORMED_STATE"
	ErrCodeMissingVerifier ErrorCode = "MISSING_VERIFIER"
	ErrCodeStateExpired    ErrorCode = "STATE_EXPIRED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// OAuthError returns the RFC 6749 error string for the wire-level
// {error, error_description} body.
func (e *Error) OAuthError() string {
	return MapErrorCodeToOAuthError(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidRequest, ErrCodeMalformedState, ErrCodeMissingVerifier:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeInvalidGrant, ErrCodeTokenInvalid, ErrCodeTokenExpired,
		ErrCodeTokenValidationFailed, ErrCodeStateExpired:
		return http.StatusUnauthorized

	// 403 Forbidden
	case ErrCodePolicyDenied:
		return http.StatusForbidden

	// 502 Bad Gateway
	case ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway

	// 504 Gateway Timeout
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout

	// 500 Internal Server Error
	case ErrCodeDirectoryLookupFailed, ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorCodeToOAuthError maps error codes to the OAuth2 wire error strings
// used in {error, error_description} response bodies.
func MapErrorCodeToOAuthError(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeMalformedState, ErrCodeMissingVerifier:
		return "invalid_request"
	case ErrCodeInvalidGrant, ErrCodeStateExpired:
		return "invalid_grant"
	case ErrCodeTokenInvalid, ErrCodeTokenExpired, ErrCodeTokenValidationFailed:
		return "invalid_token"
	case ErrCodePolicyDenied:
		return "insufficient_permissions"
	case ErrCodeUpstreamTimeout, ErrCodeUpstreamUnavailable:
		return "temporarily_unavailable"
	default:
		return "server_error"
	}
}

// Common error constructors for frequently used errors

// InvalidRequest creates an "invalid request" error
func InvalidRequest(message string) *Error {
	return New(ErrCodeInvalidRequest, message)
}

// InvalidGrant creates an "invalid grant" error carrying the provider's description
func InvalidGrant(description string) *Error {
	return New(ErrCodeInvalidGrant, description)
}

// PolicyDenied creates a "policy denied" error for a named policy
func PolicyDenied(policy string) *Error {
	return Newf(ErrCodePolicyDenied, "denied by policy %s", policy)
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}
