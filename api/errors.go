/*
errors.go - Error classification for HTTP responses

PURPOSE:
  Maps the fault categories to HTTP statuses in exactly one place. No
  handler inspects error strings; everything goes through writeDomainError.

MAPPING:
  fault.ErrNotFound      -> 404
  fault.ErrValidation    -> 400
  fault.ErrPrecondition  -> 400
  fault.ErrForbidden     -> 403
  fault.ErrUpstream      -> 502
  anything else          -> 500 (details withheld from the client)
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/falconhr/attendance-engine/fault"
)

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError classifies a domain error by its fault category.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case fault.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, fault.ErrValidation), errors.Is(err, fault.ErrPrecondition):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, fault.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, fault.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream service unavailable", nil)
	default:
		// Internal details stay in the log, not on the wire.
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
