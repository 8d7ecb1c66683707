// Package errors provides unified error handling for the tracking service
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the wire-visible error code carried in API error extensions.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidUUID  ErrorCode = "INVALID_UUID"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodePersistence  ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeCacheMiss    ErrorCode = "CACHE_MISS"
)

// ServiceError is a structured error with code, message, and HTTP status.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new ServiceError
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a ServiceError
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// NotFound reports a missing entity. Queries surface it as null or 404.
func NotFound(entity, id string) *ServiceError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound).
		WithDetails("entity", entity).
		WithDetails("id", id)
}

// InvalidInput reports a malformed or out-of-range request value.
func InvalidInput(reason string) *ServiceError {
	return New(ErrCodeInvalidInput, "Invalid input", http.StatusBadRequest).
		WithDetails("reason", reason)
}

// InvalidID reports a value that failed UUID parsing.
func InvalidID(value string, err error) *ServiceError {
	return Wrap(ErrCodeInvalidUUID, "Invalid UUID format", http.StatusBadRequest, err).
		WithDetails("value", value)
}

// Unauthorized reports a failed authorization hook.
func Unauthorized(reason string) *ServiceError {
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// RateLimited reports a throttled request with a retry hint.
func RateLimited(retryAfterSecs int) *ServiceError {
	return New(ErrCodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("retry_after_secs", retryAfterSecs)
}

// Persistence reports a tier failure that must propagate to the caller.
func Persistence(kind string, err error) *ServiceError {
	return Wrap(ErrCodePersistence, "Persistence operation failed", http.StatusInternalServerError, err).
		WithDetails("kind", kind)
}

// Internal reports an unexpected server-side failure.
func Internal(message string, err error) *ServiceError {
	return Wrap(ErrCodeInternal, message, http.StatusInternalServerError, err)
}

// CacheMiss reports a HotOnly read that found no hot-tier entry.
func CacheMiss(key string) *ServiceError {
	return New(ErrCodeCacheMiss, "Cache miss", http.StatusNotFound).
		WithDetails("key", key)
}

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether the error chain carries a NOT_FOUND code.
func IsNotFound(err error) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == ErrCodeNotFound
}

// IsCacheMiss reports whether the error chain carries a CACHE_MISS code.
func IsCacheMiss(err error) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == ErrCodeCacheMiss
}
