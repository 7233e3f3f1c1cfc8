package errors

import (
	"encoding/json"
	"net/http"

	"github.com/ivankudzin/oneclick/internal/domain/errs"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EnvelopeError is the body of every failed orchestrator call.
type EnvelopeError struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteClassified maps the error kind to an HTTP status and writes the
// envelope error body. A nil error is written as an internal failure.
func WriteClassified(w http.ResponseWriter, err *errs.Error) {
	if err == nil {
		err = errs.Internal(nil)
	}
	serviceErr := err.ToServiceError()
	status := serviceErr.Code
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	reason := serviceErr.TextCode
	if reason == "" {
		reason = errs.ReasonInternal
	}
	Write(w, status, EnvelopeError{
		Status: "error",
		Error:  reason,
	})
}
