// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tessera-io/tessera/internal/config"
)

// NewRouter assembles the full route tree. The health probe and /metrics
// stay unauthenticated; everything under /api/v1 requires a bearer token.
func NewRouter(cfg *config.SecurityConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/health", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticator(cfg.JWTSecret))

		r.Route("/roles", func(r chi.Router) {
			r.Post("/", h.handleCreateRole)
			r.Get("/", h.handleListRoles)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.handleGetRole)
				r.Put("/", h.handleUpdateRole)
				r.Delete("/", h.handleDeleteRole)
				r.Get("/permissions", h.handleListPermissionsForRole)
				r.Post("/permissions", h.handleAssignPermissionToRole)
				r.Delete("/permissions/{permission}", h.handleUnassignPermissionFromRole)
				r.Get("/groups", h.handleListGroupsForRole)
			})
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Post("/", h.handleCreatePermission)
			r.Get("/", h.handleListPermissions)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.handleGetPermission)
				r.Put("/", h.handleUpdatePermission)
				r.Delete("/", h.handleDeletePermission)
				r.Get("/roles", h.handleListRolesForPermission)
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.handleCreateGroup)
			r.Get("/", h.handleListGroups)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.handleGetGroup)
				r.Put("/", h.handleUpdateGroup)
				r.Delete("/", h.handleDeleteGroup)
				r.Post("/reactivate", h.handleReactivateGroup)
				r.Get("/roles", h.handleListRolesForGroup)
				r.Post("/roles", h.handleAssignRoleToGroup)
				r.Delete("/roles/{role}", h.handleUnassignRoleFromGroup)
				r.Get("/users", h.handleListGroupUsers)
				r.Post("/users", h.handleAddUserToGroup)
				r.Delete("/users/{username}", h.handleRemoveUserFromGroup)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.handleListUsers)
			r.Route("/{username}", func(r chi.Router) {
				r.Get("/", h.handleGetUser)
				r.Delete("/", h.handleDeleteUser)
				r.Post("/disable", h.handleDisableUser)
				r.Post("/enable", h.handleEnableUser)
				r.Get("/roles", h.handleListRolesForUser)
				r.Post("/roles", h.handleAssignRoleToUser)
				r.Delete("/roles/{role}", h.handleUnassignRoleFromUser)
				r.Get("/permissions", h.handleListPermissionsForUser)
				r.Post("/permissions", h.handleAssignPermissionToUser)
				r.Delete("/permissions/{permission}", h.handleUnassignPermissionFromUser)
				r.Get("/groups", h.handleListGroupsForUser)
			})
		})

		r.Route("/policies", func(r chi.Router) {
			r.Post("/", h.handleCreatePolicy)
			r.Get("/", h.handleListPolicies)
			r.Route("/{identifier}", func(r chi.Router) {
				r.Get("/", h.handleGetPolicy)
				r.Put("/", h.handleUpdatePolicy)
				r.Delete("/", h.handleDeletePolicy)
				r.Get("/versions", h.handleListPolicyVersions)
				r.Post("/rollback", h.handleRollbackPolicy)
			})
		})
	})

	return r
}
