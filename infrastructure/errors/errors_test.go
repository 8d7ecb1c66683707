package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ServiceError
		want string
	}{
		{
			name: "error without underlying error",
			err:  New(ErrCodeUnauthorized, "test message", http.StatusUnauthorized),
			want: "[UNAUTHORIZED] test message",
		},
		{
			name: "error with underlying error",
			err:  Wrap(ErrCodeInternal, "test message", http.StatusInternalServerError, errors.New("underlying")),
			want: "[INTERNAL_ERROR] test message: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(ErrCodePersistence, "test", http.StatusInternalServerError, underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestTaxonomyStatusCodes(t *testing.T) {
	tests := []struct {
		err        *ServiceError
		wantCode   ErrorCode
		wantStatus int
	}{
		{NotFound("convoy", "abc"), ErrCodeNotFound, http.StatusNotFound},
		{InvalidInput("limit out of range"), ErrCodeInvalidInput, http.StatusBadRequest},
		{InvalidID("nope", errors.New("bad uuid")), ErrCodeInvalidUUID, http.StatusBadRequest},
		{Unauthorized("missing token"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{RateLimited(30), ErrCodeRateLimited, http.StatusTooManyRequests},
		{Persistence("cold", errors.New("timeout")), ErrCodePersistence, http.StatusInternalServerError},
		{Internal("boom", nil), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.wantCode {
			t.Errorf("code = %v, want %v", tt.err.Code, tt.wantCode)
		}
		if tt.err.HTTPStatus != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.wantCode, tt.err.HTTPStatus, tt.wantStatus)
		}
	}
}

func TestRateLimitedCarriesRetryHint(t *testing.T) {
	err := RateLimited(42)
	if err.Details["retry_after_secs"] != 42 {
		t.Errorf("retry_after_secs = %v, want 42", err.Details["retry_after_secs"])
	}
}

func TestGetHTTPStatus(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("drone", "d1"))
	if got := GetHTTPStatus(wrapped); got != http.StatusNotFound {
		t.Errorf("GetHTTPStatus() = %d, want %d", got, http.StatusNotFound)
	}
	if got := GetHTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("GetHTTPStatus(plain) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestIsCacheMiss(t *testing.T) {
	if !IsCacheMiss(CacheMiss("convoy:leaderboard:x")) {
		t.Error("IsCacheMiss() = false, want true")
	}
	if IsCacheMiss(NotFound("convoy", "x")) {
		t.Error("IsCacheMiss(NotFound) = true, want false")
	}
}
