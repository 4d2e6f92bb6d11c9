// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/store"
	"github.com/tessera-io/tessera/internal/validation"
)

type contextKey string

const principalKey contextKey = "principal"

// principalClaims is the bearer-token claim set minted by the upstream
// authentication layer. This service verifies; it never issues.
type principalClaims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator verifies the bearer token and attaches the resulting
// Principal to the request context. Requests without a valid token get 401.
func Authenticator(secret string) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				respondError(w, http.StatusUnauthorized, errCodeUnauthorized, "missing bearer token", nil)
				return
			}

			claims := &principalClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc,
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				logging.Debug().Err(err).Msg("bearer token rejected")
				respondError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid bearer token", nil)
				return
			}
			if claims.Subject == "" || claims.TenantID == "" {
				respondError(w, http.StatusUnauthorized, errCodeUnauthorized, "token missing subject or tenant", nil)
				return
			}

			principal := &models.Principal{
				ID:       claims.Subject,
				TenantID: claims.TenantID,
				Roles:    claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, principal)))
		})
	}
}

// principalFrom returns the authenticated principal, or nil on routes that
// skipped the authenticator.
func principalFrom(r *http.Request) *models.Principal {
	p, _ := r.Context().Value(principalKey).(*models.Principal)
	return p
}

// PrometheusMetrics records per-route request durations using the chi route
// pattern, so path parameters do not explode the label space.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

// pathParam extracts a URL path parameter and validates it as an entity
// name. Store key schemas delimit natural keys with '/', so a name that
// slipped through here could garble prefix scans. Returns false after
// writing the 400 when the value is invalid.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	value := chi.URLParam(r, key)
	if !validation.EntityName(value) {
		respondError(w, http.StatusBadRequest, errCodeBadRequest,
			key+" must be 1-128 characters of letters, digits, '.', '_', ':', or '-'", nil)
		return "", false
	}
	return value, true
}

// listParams carries validated pagination query parameters.
type listParams struct {
	Limit  int    `validate:"min=0,max=1000"`
	Cursor string `validate:"omitempty,b64cursor"`
}

// parseListParams reads ?limit= and ?cursor=. Returns false after writing
// the error response when either is invalid.
func parseListParams(w http.ResponseWriter, r *http.Request) (models.ListOptions, bool) {
	params := listParams{Cursor: r.URL.Query().Get("cursor")}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errCodeBadRequest, "limit must be an integer", nil)
			return models.ListOptions{}, false
		}
		params.Limit = limit
	}

	if verr := validation.ValidateStruct(&params); verr != nil {
		respondValidationError(w, verr)
		return models.ListOptions{}, false
	}
	if params.Limit == 0 {
		params.Limit = store.DefaultListLimit
	}
	return models.ListOptions{Limit: params.Limit, Cursor: params.Cursor}, true
}
