// ABOUTME: Response envelope shared by every /processor endpoint.
// ABOUTME: Maps envelope statuses onto HTTP 200/400/404/422.

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope statuses. Every /processor response carries exactly one.
const (
	statusSuccess         = "success"
	statusFailure         = "failure"
	statusValidationError = "validation_error"
	statusNotFound        = "not_found"
)

// Envelope is the uniform response body for the processor API.
type Envelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Default().Error("encoding response envelope", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{Status: statusSuccess, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, errMsg string) {
	writeEnvelope(w, http.StatusBadRequest, Envelope{Status: statusFailure, Error: errMsg})
}

func writeValidationFailure(w http.ResponseWriter, errs []string) {
	writeEnvelope(w, http.StatusUnprocessableEntity, Envelope{
		Status: statusValidationError,
		Error:  "request validation failed",
		Errors: errs,
	})
}

func writeNotFound(w http.ResponseWriter, errMsg string) {
	writeEnvelope(w, http.StatusNotFound, Envelope{Status: statusNotFound, Error: errMsg})
}
