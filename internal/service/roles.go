// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package service

import (
	"context"
	"errors"

	"github.com/tessera-io/tessera/internal/audit"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/store"
)

// RoleService implements role administration: CRUD plus the
// role-to-permission half of the assignment graph.
type RoleService struct {
	roles       RoleRepository
	permissions PermissionRepository
	assignments AssignmentRepository
	authz       *Authorizer
	audit       *audit.Logger
}

// NewRoleService wires a role service.
func NewRoleService(roles RoleRepository, permissions PermissionRepository, assignments AssignmentRepository, authz *Authorizer, auditLog *audit.Logger) *RoleService {
	return &RoleService{
		roles:       roles,
		permissions: permissions,
		assignments: assignments,
		authz:       authz,
		audit:       auditLog,
	}
}

// Create persists a new role in the caller's tenant.
//
// Returns NameExists when the role name is already taken. The existence
// check and the write are atomic, so concurrent creates of the same name
// cannot both succeed.
func (s *RoleService) Create(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error) {
	const op = "role.create"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	role := &models.Role{TenantID: p.TenantID, RoleName: name, Description: description}
	if err := s.roles.Create(ctx, role); err != nil {
		metrics.RecordAdminOperation(op, "error")
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fail(s.audit, p, domain.NameExists(op, "role", name))
		}
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "role", name)
	return role, nil
}

// Get returns the role, or nil if it does not exist.
func (s *RoleService) Get(ctx context.Context, p *models.Principal, name string) (*models.Role, error) {
	const op = "role.get"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByName(ctx, p.TenantID, name)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return role, nil
}

// List returns one page of the tenant's roles.
func (s *RoleService) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Role, string, error) {
	const op = "role.list"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}

	roles, cursor, err := s.roles.List(ctx, p.TenantID, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, domain.Wrap(op, err))
	}
	return roles, cursor, nil
}

// Update overwrites the role description. Returns nil without error if the
// role does not exist.
func (s *RoleService) Update(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error) {
	const op = "role.update"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	role, err := s.roles.Update(ctx, p.TenantID, name, description)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if role != nil {
		metrics.RecordAdminOperation(op, "success")
		s.audit.Allowed(op, p, "role", name)
	}
	return role, nil
}

// Delete removes the role and cascades removal of every assignment edge
// that references it (group-role, role-permission, user-role).
//
// The cascade is a second phase after the record delete: if it fails the
// primary delete is not rolled back and the error is CleanupFailed carrying
// the cause, so the caller knows edges may remain.
func (s *RoleService) Delete(ctx context.Context, p *models.Principal, name string) error {
	const op = "role.delete"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	found, err := s.roles.Delete(ctx, p.TenantID, name)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if !found {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.NotFound(op, "role", name))
	}

	if err := s.assignments.RemoveAllForRole(ctx, p.TenantID, name); err != nil {
		metrics.RecordCascadeCleanupFailure("role")
		metrics.RecordAdminOperation(op, "cleanup_failed")
		return fail(s.audit, p, domain.CleanupFailed(op, "role", name, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "role", name)
	return nil
}

// AssignPermission grants the permission to the role. Both endpoints must
// exist; the role is checked first, so a missing role short-circuits before
// the permission lookup. Re-assigning an existing pair is idempotent.
func (s *RoleService) AssignPermission(ctx context.Context, p *models.Principal, roleName, permissionName string) error {
	const op = "role.assign_permission"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	role, err := s.roles.FindByName(ctx, p.TenantID, roleName)
	if err != nil {
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if role == nil {
		return fail(s.audit, p, domain.NotFound(op, "role", roleName))
	}

	perm, err := s.permissions.FindByName(ctx, p.TenantID, permissionName)
	if err != nil {
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if perm == nil {
		return fail(s.audit, p, domain.NotFound(op, "permission", permissionName))
	}

	if err := s.assignments.AssignPermissionToRole(ctx, p.TenantID, roleName, permissionName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "assign permission "+permissionName+" to role "+roleName, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "role", roleName)
	return nil
}

// UnassignPermission removes the grant. No existence checks: removing an
// absent edge succeeds.
func (s *RoleService) UnassignPermission(ctx context.Context, p *models.Principal, roleName, permissionName string) error {
	const op = "role.unassign_permission"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.assignments.RemovePermissionFromRole(ctx, p.TenantID, roleName, permissionName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "unassign permission "+permissionName+" from role "+roleName, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "role", roleName)
	return nil
}

// ListPermissionsForRole lists the permission names granted to the role.
// NotFound if the role does not exist.
func (s *RoleService) ListPermissionsForRole(ctx context.Context, p *models.Principal, roleName string) ([]string, error) {
	const op = "role.list_permissions"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByName(ctx, p.TenantID, roleName)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if role == nil {
		return nil, fail(s.audit, p, domain.NotFound(op, "role", roleName))
	}

	names, err := s.assignments.FindPermissionsForRole(ctx, p.TenantID, roleName)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}
