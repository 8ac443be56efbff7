// Package handler exposes the portal's HTTP endpoints.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"kycportal/pkg/errors"
	"kycportal/pkg/logger"
	"kycportal/pkg/validator"
)

// respondJSON sends a JSON response with proper content type and status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a standardized error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// parseAndValidateRequest parses and validates a JSON request body. It writes
// the error response itself and reports whether the caller should continue.
func parseAndValidateRequest(w http.ResponseWriter, r *http.Request, val *validator.Validator, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if err := val.Validate(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	if errors.Is(err, errors.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	switch errors.KindOf(err) {
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindInvalidStateTransition:
		return http.StatusConflict
	case errors.KindUnauthorized:
		return http.StatusForbidden
	case errors.KindInvalidApprovalLevel:
		return http.StatusUnprocessableEntity
	case errors.KindDuplicateKey:
		return http.StatusConflict
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindExternalSink:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError logs the failure and writes the mapped response. Internal
// errors never leak their message to the client.
func handleServiceError(w http.ResponseWriter, log logger.Logger, operation string, err error) {
	status := statusForError(err)

	logData := map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
		"status":    status,
	}

	if status >= 500 {
		log.Error("Request failed", logData)
		if status == http.StatusInternalServerError {
			respondError(w, status, "Internal server error")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	log.Warn("Request rejected", logData)
	respondError(w, status, err.Error())
}
