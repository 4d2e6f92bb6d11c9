// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package api exposes the admin operations over HTTP with a uniform JSON
// envelope. Domain error kinds map one-to-one onto HTTP status codes, so
// clients can switch on either.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/validation"
)

// Error codes for API responses.
const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeUnauthorized  = "UNAUTHORIZED"
	errCodeForbidden     = "FORBIDDEN"
	errCodeNotFound      = "NOT_FOUND"
	errCodeNameExists    = "NAME_EXISTS"
	errCodeInvalidSyntax = "INVALID_SYNTAX"
	errCodeAssignment    = "ASSIGNMENT_FAILED"
	errCodeCleanup       = "CLEANUP_FAILED"
	errCodeAdapter       = "ADAPTER_FAULT"
	errCodeInternal      = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, body models.APIResponse) {
	body.Metadata.Timestamp = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondData writes a success envelope.
func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, models.APIResponse{Status: "success", Data: data})
}

// respondList writes a success envelope with a continuation cursor.
func respondList(w http.ResponseWriter, data interface{}, nextCursor string) {
	writeJSON(w, http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{NextCursor: nextCursor},
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message, Details: details},
	})
}

// respondValidationError writes a 400 carrying every failing field.
func respondValidationError(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// respondDomainError maps a classified error onto its HTTP status. Client
// errors carry the domain message; infrastructure faults are logged and
// return a generic body so internals never leak.
func respondDomainError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logging.Error().Err(err).Msg("unclassified error reached the HTTP layer")
		respondError(w, http.StatusInternalServerError, errCodeInternal, "internal error", nil)
		return
	}

	switch derr.Kind {
	case domain.KindForbidden:
		respondError(w, http.StatusForbidden, errCodeForbidden, "caller lacks an admin role", nil)
	case domain.KindNotFound:
		respondError(w, http.StatusNotFound, errCodeNotFound, derr.Entity+" "+derr.Name+" not found", nil)
	case domain.KindNameExists:
		respondError(w, http.StatusConflict, errCodeNameExists, derr.Entity+" "+derr.Name+" already exists", nil)
	case domain.KindInvalidSyntax:
		details := map[string]interface{}{"policy_language": derr.Language}
		respondError(w, http.StatusUnprocessableEntity, errCodeInvalidSyntax, derr.Detail, details)
	case domain.KindAssignment:
		logging.Error().Err(err).Msg("assignment write failed")
		respondError(w, http.StatusInternalServerError, errCodeAssignment, "assignment could not be recorded", nil)
	case domain.KindCleanupFailed:
		logging.Error().Err(err).Msg("cascade cleanup failed")
		respondError(w, http.StatusInternalServerError, errCodeCleanup,
			derr.Entity+" "+derr.Name+" deleted but assignment cleanup failed", nil)
	case domain.KindAdapter:
		logging.Error().Err(err).Msg("identity provider fault")
		respondError(w, http.StatusBadGateway, errCodeAdapter, "identity provider unavailable", nil)
	default:
		logging.Error().Err(err).Msg("unhandled error kind")
		respondError(w, http.StatusInternalServerError, errCodeInternal, "internal error", nil)
	}
}

// decodeBody decodes and validates a JSON request body. Returns false after
// writing the error response when the body is malformed or invalid.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, errCodeBadRequest, "malformed JSON body", nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondValidationError(w, verr)
		return false
	}
	return true
}
