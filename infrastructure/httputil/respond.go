// Package httputil provides JSON request/response helpers shared by the
// gateway handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code, message, and optional details.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteError maps an error to its HTTP status and JSON envelope.
func WriteError(w http.ResponseWriter, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("internal server error", err)
	}
	WriteJSON(w, se.HTTPStatus, ErrorBody{Error: ErrorDetail{
		Code:    string(se.Code),
		Message: se.Message,
		Details: se.Details,
	}})
}

// DecodeJSON decodes the request body into dest, writing a 400 on
// failure. Returns false when decoding failed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		WriteError(w, apperrors.InvalidInput("malformed JSON body"))
		return false
	}
	return true
}
