// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import (
	"context"
	"net/http"

	"github.com/tessera-io/tessera/internal/models"
)

// RoleAdmin is the role surface the HTTP layer consumes.
type RoleAdmin interface {
	Create(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error)
	Get(ctx context.Context, p *models.Principal, name string) (*models.Role, error)
	List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Role, string, error)
	Update(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error)
	Delete(ctx context.Context, p *models.Principal, name string) error
	AssignPermission(ctx context.Context, p *models.Principal, roleName, permissionName string) error
	UnassignPermission(ctx context.Context, p *models.Principal, roleName, permissionName string) error
	ListPermissionsForRole(ctx context.Context, p *models.Principal, roleName string) ([]string, error)
}

// PermissionAdmin is the permission surface the HTTP layer consumes.
type PermissionAdmin interface {
	Create(ctx context.Context, p *models.Principal, name, description string) (*models.Permission, error)
	Get(ctx context.Context, p *models.Principal, name string) (*models.Permission, error)
	List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Permission, string, error)
	Update(ctx context.Context, p *models.Principal, name, description string) (*models.Permission, error)
	Delete(ctx context.Context, p *models.Principal, name string) error
	ListRolesForPermission(ctx context.Context, p *models.Principal, name string) ([]string, error)
}

// GroupAdmin is the group surface the HTTP layer consumes.
type GroupAdmin interface {
	Create(ctx context.Context, p *models.Principal, name, description string, precedence int) (*models.Group, error)
	Get(ctx context.Context, p *models.Principal, name string) (*models.Group, error)
	List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Group, string, error)
	Update(ctx context.Context, p *models.Principal, name string, description *string, precedence *int) (*models.Group, error)
	Delete(ctx context.Context, p *models.Principal, name string) error
	Reactivate(ctx context.Context, p *models.Principal, name string) (*models.Group, error)
	AssignRole(ctx context.Context, p *models.Principal, groupName, roleName string) error
	UnassignRole(ctx context.Context, p *models.Principal, groupName, roleName string) error
	ListRolesForGroup(ctx context.Context, p *models.Principal, groupName string) ([]string, error)
	ListGroupsForRole(ctx context.Context, p *models.Principal, roleName string) ([]string, error)
	ListUsers(ctx context.Context, p *models.Principal, groupName string, opts models.ListOptions) ([]models.User, string, error)
	AddUser(ctx context.Context, p *models.Principal, groupName, username string) error
	RemoveUser(ctx context.Context, p *models.Principal, groupName, username string) error
}

// UserAdmin is the user surface the HTTP layer consumes.
type UserAdmin interface {
	Get(ctx context.Context, p *models.Principal, username string) (*models.User, error)
	List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.User, string, error)
	Disable(ctx context.Context, p *models.Principal, username string) error
	Enable(ctx context.Context, p *models.Principal, username string) error
	Delete(ctx context.Context, p *models.Principal, username string) error
	AssignRole(ctx context.Context, p *models.Principal, username, roleName string) error
	UnassignRole(ctx context.Context, p *models.Principal, username, roleName string) error
	AssignPermission(ctx context.Context, p *models.Principal, username, permissionName string) error
	UnassignPermission(ctx context.Context, p *models.Principal, username, permissionName string) error
	ListRolesForUser(ctx context.Context, p *models.Principal, username string) ([]string, error)
	ListPermissionsForUser(ctx context.Context, p *models.Principal, username string) ([]string, error)
	ListGroupsForUser(ctx context.Context, p *models.Principal, username string) ([]models.Group, error)
}

// PolicyAdmin is the policy surface the HTTP layer consumes.
type PolicyAdmin interface {
	Create(ctx context.Context, p *models.Principal, name, definition, language, description string, metadata map[string]string) (*models.Policy, error)
	Get(ctx context.Context, p *models.Principal, identifier string) (*models.Policy, error)
	List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Policy, string, error)
	Update(ctx context.Context, p *models.Principal, identifier string, update models.PolicyUpdate) (*models.Policy, error)
	Delete(ctx context.Context, p *models.Principal, identifier string) error
	Rollback(ctx context.Context, p *models.Principal, id string, version int) (*models.Policy, error)
	ListVersions(ctx context.Context, p *models.Principal, id string) ([]models.Policy, error)
}

// Handler holds the admin services behind consumer-side interfaces so tests
// can substitute fakes per resource.
type Handler struct {
	roles       RoleAdmin
	permissions PermissionAdmin
	groups      GroupAdmin
	users       UserAdmin
	policies    PolicyAdmin
}

// NewHandler wires the HTTP layer to the admin services.
func NewHandler(roles RoleAdmin, permissions PermissionAdmin, groups GroupAdmin, users UserAdmin, policies PolicyAdmin) *Handler {
	return &Handler{
		roles:       roles,
		permissions: permissions,
		groups:      groups,
		users:       users,
		policies:    policies,
	}
}

// handleHealth is the unauthenticated liveness probe.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}
