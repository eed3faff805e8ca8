// Package errors defines the application error taxonomy and the JSON error
// envelope returned by the HTTP boundary.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// Machine-readable error codes in the HTTP envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeUnknownCheck     = "UNKNOWN_CHECK"
	CodeValidation       = "VALIDATION"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPErrorResponse is the JSON envelope for all error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorBody `json:"error"`
}

// HTTPErrorBody carries the code and message inside the envelope.
type HTTPErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes the JSON envelope with the given status and code.
func WriteError(w http.ResponseWriter, status int, code, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorBody{Code: code, Message: message, RequestID: requestID},
	})
}

// RespondWithError maps a domain error to its HTTP status and code and
// writes the envelope. Unrecognized errors map to 500 INTERNAL_ERROR.
func RespondWithError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, jobmanager.ErrUnknownCheck):
		WriteError(w, http.StatusNotFound, CodeUnknownCheck, err.Error(), requestID)
	case errors.Is(err, jobmanager.ErrJobNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error(), requestID)
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternal, err.Error(), requestID)
	}
}
