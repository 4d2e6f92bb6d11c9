// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package service

import (
	"context"

	"github.com/tessera-io/tessera/internal/audit"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// UserService administers directory users and their direct role and
// permission grants. User records themselves live in the directory; the
// store only holds the grant edges.
type UserService struct {
	directory   Directory
	roles       RoleRepository
	permissions PermissionRepository
	assignments AssignmentRepository
	authz       *Authorizer
	audit       *audit.Logger
}

// NewUserService wires a user service.
func NewUserService(directory Directory, roles RoleRepository, permissions PermissionRepository, assignments AssignmentRepository, authz *Authorizer, auditLog *audit.Logger) *UserService {
	return &UserService{
		directory:   directory,
		roles:       roles,
		permissions: permissions,
		assignments: assignments,
		authz:       authz,
		audit:       auditLog,
	}
}

// Get returns the user, or nil if the directory does not know them.
func (s *UserService) Get(ctx context.Context, p *models.Principal, username string) (*models.User, error) {
	const op = "user.get"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	user, err := s.directory.GetUser(ctx, p.TenantID, username)
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(s.audit, p, err)
	}
	return user, nil
}

// List returns one page of the tenant's users.
func (s *UserService) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.User, string, error) {
	const op = "user.list"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}
	users, cursor, err := s.directory.ListUsers(ctx, p.TenantID, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, err)
	}
	return users, cursor, nil
}

// setEnabled flips the user's sign-in flag in the directory.
func (s *UserService) setEnabled(ctx context.Context, op string, p *models.Principal, username string, enabled bool) error {
	if err := s.directory.SetUserEnabled(ctx, p.TenantID, username, enabled); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, err)
	}
	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// Disable blocks the user's sign-in. NotFound if the user does not exist.
func (s *UserService) Disable(ctx context.Context, p *models.Principal, username string) error {
	const op = "user.disable"
	if err := s.authz.require(op, p); err != nil {
		return err
	}
	return s.setEnabled(ctx, op, p, username, false)
}

// Enable restores the user's sign-in. NotFound if the user does not exist.
func (s *UserService) Enable(ctx context.Context, p *models.Principal, username string) error {
	const op = "user.enable"
	if err := s.authz.require(op, p); err != nil {
		return err
	}
	return s.setEnabled(ctx, op, p, username, true)
}

// Delete removes the user from the directory and cascades removal of their
// direct role and permission grants. The directory delete is phase one; if
// the grant cleanup then fails, the error is CleanupFailed and the
// directory delete stands.
func (s *UserService) Delete(ctx context.Context, p *models.Principal, username string) error {
	const op = "user.delete"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.directory.DeleteUser(ctx, p.TenantID, username); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, err)
	}

	if err := s.assignments.RemoveAllForUser(ctx, p.TenantID, username); err != nil {
		metrics.RecordCascadeCleanupFailure("user")
		metrics.RecordAdminOperation(op, "cleanup_failed")
		return fail(s.audit, p, domain.CleanupFailed(op, "user", username, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// AssignRole grants the role directly to the user. The user is validated
// with the directory first, then the role against the store.
func (s *UserService) AssignRole(ctx context.Context, p *models.Principal, username, roleName string) error {
	const op = "user.assign_role"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if _, err := s.directory.GetUser(ctx, p.TenantID, username); err != nil {
		return fail(s.audit, p, err)
	}

	role, err := s.roles.FindByName(ctx, p.TenantID, roleName)
	if err != nil {
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if role == nil {
		return fail(s.audit, p, domain.NotFound(op, "role", roleName))
	}

	if err := s.assignments.AssignRoleToUser(ctx, p.TenantID, username, roleName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "assign role "+roleName+" to user "+username, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// UnassignRole removes the direct grant without existence checks.
func (s *UserService) UnassignRole(ctx context.Context, p *models.Principal, username, roleName string) error {
	const op = "user.unassign_role"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.assignments.RemoveRoleFromUser(ctx, p.TenantID, username, roleName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "unassign role "+roleName+" from user "+username, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// AssignPermission grants a permission directly to the user, bypassing
// roles. Used for narrow one-off grants.
func (s *UserService) AssignPermission(ctx context.Context, p *models.Principal, username, permissionName string) error {
	const op = "user.assign_permission"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if _, err := s.directory.GetUser(ctx, p.TenantID, username); err != nil {
		return fail(s.audit, p, err)
	}

	perm, err := s.permissions.FindByName(ctx, p.TenantID, permissionName)
	if err != nil {
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if perm == nil {
		return fail(s.audit, p, domain.NotFound(op, "permission", permissionName))
	}

	if err := s.assignments.AssignPermissionToUser(ctx, p.TenantID, username, permissionName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "assign permission "+permissionName+" to user "+username, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// UnassignPermission removes the direct grant without existence checks.
func (s *UserService) UnassignPermission(ctx context.Context, p *models.Principal, username, permissionName string) error {
	const op = "user.unassign_permission"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.assignments.RemovePermissionFromUser(ctx, p.TenantID, username, permissionName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "unassign permission "+permissionName+" from user "+username, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "user", username)
	return nil
}

// ListRolesForUser lists the role names granted directly to the user.
// NotFound if the directory does not know the user.
func (s *UserService) ListRolesForUser(ctx context.Context, p *models.Principal, username string) ([]string, error) {
	const op = "user.list_roles"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	if _, err := s.directory.GetUser(ctx, p.TenantID, username); err != nil {
		return nil, fail(s.audit, p, err)
	}

	names, err := s.assignments.FindRolesForUser(ctx, p.TenantID, username)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}

// ListPermissionsForUser lists the permission names granted directly to the
// user. NotFound if the directory does not know the user.
func (s *UserService) ListPermissionsForUser(ctx context.Context, p *models.Principal, username string) ([]string, error) {
	const op = "user.list_permissions"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	if _, err := s.directory.GetUser(ctx, p.TenantID, username); err != nil {
		return nil, fail(s.audit, p, err)
	}

	names, err := s.assignments.FindPermissionsForUser(ctx, p.TenantID, username)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}

// ListGroupsForUser lists the directory groups the user belongs to.
func (s *UserService) ListGroupsForUser(ctx context.Context, p *models.Principal, username string) ([]models.Group, error) {
	const op = "user.list_groups"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}
	groups, err := s.directory.ListGroupsForUser(ctx, p.TenantID, username)
	if err != nil {
		return nil, fail(s.audit, p, err)
	}
	return groups, nil
}
