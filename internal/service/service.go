// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package service implements the admin operations behind the HTTP API.
// Every service is wired by constructor injection; the only composition
// point is cmd/server.
//
// All mutating and reading operations share one authorization gate: the
// caller's role set must intersect the configured admin roles before any
// store or directory access happens. A denied call performs zero I/O.
package service

import (
	"context"
	"errors"

	"github.com/tessera-io/tessera/internal/audit"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// RoleRepository is the role persistence surface the services consume.
// This abstraction allows the services to be tested without a real store.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindByName(ctx context.Context, tenantID, name string) (*models.Role, error)
	List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Role, string, error)
	Update(ctx context.Context, tenantID, name, description string) (*models.Role, error)
	Delete(ctx context.Context, tenantID, name string) (bool, error)
}

// PermissionRepository is the permission persistence surface.
type PermissionRepository interface {
	Create(ctx context.Context, perm *models.Permission) error
	FindByName(ctx context.Context, tenantID, name string) (*models.Permission, error)
	List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Permission, string, error)
	Update(ctx context.Context, tenantID, name, description string) (*models.Permission, error)
	Delete(ctx context.Context, tenantID, name string) (bool, error)
}

// AssignmentRepository is the assignment-graph surface.
type AssignmentRepository interface {
	AssignRoleToGroup(ctx context.Context, tenantID, groupName, roleName string) error
	RemoveRoleFromGroup(ctx context.Context, tenantID, groupName, roleName string) error
	FindRolesForGroup(ctx context.Context, tenantID, groupName string) ([]string, error)
	FindGroupsForRole(ctx context.Context, tenantID, roleName string) ([]string, error)

	AssignPermissionToRole(ctx context.Context, tenantID, roleName, permissionName string) error
	RemovePermissionFromRole(ctx context.Context, tenantID, roleName, permissionName string) error
	FindPermissionsForRole(ctx context.Context, tenantID, roleName string) ([]string, error)
	FindRolesForPermission(ctx context.Context, tenantID, permissionName string) ([]string, error)

	AssignRoleToUser(ctx context.Context, tenantID, username, roleName string) error
	RemoveRoleFromUser(ctx context.Context, tenantID, username, roleName string) error
	FindRolesForUser(ctx context.Context, tenantID, username string) ([]string, error)
	FindUsersForRole(ctx context.Context, tenantID, roleName string) ([]string, error)

	AssignPermissionToUser(ctx context.Context, tenantID, username, permissionName string) error
	RemovePermissionFromUser(ctx context.Context, tenantID, username, permissionName string) error
	FindPermissionsForUser(ctx context.Context, tenantID, username string) ([]string, error)
	FindUsersForPermission(ctx context.Context, tenantID, permissionName string) ([]string, error)

	RemoveAllForRole(ctx context.Context, tenantID, roleName string) error
	RemoveAllForPermission(ctx context.Context, tenantID, permissionName string) error
	RemoveAllForGroup(ctx context.Context, tenantID, groupName string) error
	RemoveAllForUser(ctx context.Context, tenantID, username string) error
}

// PolicyRepository is the versioned policy persistence surface.
type PolicyRepository interface {
	Create(ctx context.Context, policy *models.Policy) error
	AppendVersion(ctx context.Context, policy *models.Policy) (*models.Policy, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Policy, error)
	FindByName(ctx context.Context, tenantID, name string) (*models.Policy, error)
	List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Policy, string, error)
	GetVersion(ctx context.Context, tenantID, id string, version int) (*models.Policy, error)
	ListVersions(ctx context.Context, tenantID, id string) ([]models.Policy, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// Directory is the identity-provider surface consumed by group and user
// services.
type Directory interface {
	CreateGroup(ctx context.Context, tenantID string, group *models.Group) (*models.Group, error)
	GetGroup(ctx context.Context, tenantID, name string) (*models.Group, error)
	ListGroups(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Group, string, error)
	UpdateGroup(ctx context.Context, tenantID, name string, update models.GroupUpdate) (*models.Group, error)
	ListUsersInGroup(ctx context.Context, tenantID, name string, opts models.ListOptions) ([]models.User, string, error)
	AddUserToGroup(ctx context.Context, tenantID, name, username string) error
	RemoveUserFromGroup(ctx context.Context, tenantID, name, username string) error

	GetUser(ctx context.Context, tenantID, username string) (*models.User, error)
	ListUsers(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.User, string, error)
	ListGroupsForUser(ctx context.Context, tenantID, username string) ([]models.Group, error)
	SetUserEnabled(ctx context.Context, tenantID, username string, enabled bool) error
	DeleteUser(ctx context.Context, tenantID, username string) error
}

// SyntaxValidator checks policy definitions before they are versioned.
type SyntaxValidator interface {
	ValidateSyntax(ctx context.Context, definition, language string) error
}

// Authorizer is the shared admin-role gate.
type Authorizer struct {
	adminRoles []string
	audit      *audit.Logger
}

func NewAuthorizer(adminRoles []string, auditLog *audit.Logger) *Authorizer {
	return &Authorizer{adminRoles: adminRoles, audit: auditLog}
}

// fail records the audit trail for an error that occurred after the
// authorization gate and returns the error unchanged. The operation name,
// entity, and error kind come from the classified error itself, so every
// error path logs the caller identity before propagating.
func fail(a *audit.Logger, p *models.Principal, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		a.Failed(de.Op, p, de.Entity, de.Name, de.Kind.String())
	}
	return err
}

// require rejects the call with Forbidden unless the principal carries one
// of the admin roles. Runs before any I/O.
func (a *Authorizer) require(op string, p *models.Principal) error {
	if p == nil {
		p = &models.Principal{}
	}
	if !p.HasAnyRole(a.adminRoles...) {
		metrics.RecordAuthzDenial(op)
		a.audit.Denied(op, p)
		return domain.Forbidden(op, p.ID)
	}
	return nil
}
