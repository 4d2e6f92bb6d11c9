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

// GroupService administers groups. Group records live in the external
// directory; Tessera only stores the group-role assignment edges.
//
// Deleting a group is a soft status transition to INACTIVE, carried in the
// encoded description payload on the provider side. The transition is a
// read-modify-write of that payload; a concurrent writer to the same group
// description can lose the race. Acceptable for an admin plane with human
// call rates.
type GroupService struct {
	directory   Directory
	roles       RoleRepository
	assignments AssignmentRepository
	authz       *Authorizer
	audit       *audit.Logger
}

// NewGroupService wires a group service.
func NewGroupService(directory Directory, roles RoleRepository, assignments AssignmentRepository, authz *Authorizer, auditLog *audit.Logger) *GroupService {
	return &GroupService{
		directory:   directory,
		roles:       roles,
		assignments: assignments,
		authz:       authz,
		audit:       auditLog,
	}
}

// Create registers a new group with the directory. NameExists if the
// provider reports a conflict.
func (s *GroupService) Create(ctx context.Context, p *models.Principal, name, description string, precedence int) (*models.Group, error) {
	const op = "group.create"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	group, err := s.directory.CreateGroup(ctx, p.TenantID, &models.Group{
		GroupName:   name,
		Description: description,
		Status:      models.GroupStatusActive,
		Precedence:  precedence,
	})
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, err)
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", name)
	return group, nil
}

// Get returns the group, or nil if the directory does not know it.
func (s *GroupService) Get(ctx context.Context, p *models.Principal, name string) (*models.Group, error) {
	const op = "group.get"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	group, err := s.directory.GetGroup(ctx, p.TenantID, name)
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(s.audit, p, err)
	}
	return group, nil
}

// List returns one page of the tenant's groups, inactive ones included.
func (s *GroupService) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Group, string, error) {
	const op = "group.list"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}
	groups, cursor, err := s.directory.ListGroups(ctx, p.TenantID, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, err)
	}
	return groups, cursor, nil
}

// Update applies a partial update to the group's description and
// precedence. NotFound if the group does not exist.
func (s *GroupService) Update(ctx context.Context, p *models.Principal, name string, description *string, precedence *int) (*models.Group, error) {
	const op = "group.update"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	group, err := s.directory.UpdateGroup(ctx, p.TenantID, name, models.GroupUpdate{
		Description: description,
		Precedence:  precedence,
	})
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, err)
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", name)
	return group, nil
}

// setStatus performs the soft lifecycle transition.
func (s *GroupService) setStatus(ctx context.Context, op string, p *models.Principal, name string, status models.GroupStatus) (*models.Group, error) {
	group, err := s.directory.UpdateGroup(ctx, p.TenantID, name, models.GroupUpdate{Status: &status})
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, err)
	}
	return group, nil
}

// Delete soft-deletes the group: status flips to INACTIVE in the directory
// and all group-role edges are removed. The record stays on the provider
// side so memberships are not orphaned. NotFound if the group does not
// exist; edge-cleanup failure surfaces as CleanupFailed without reverting
// the status flip.
func (s *GroupService) Delete(ctx context.Context, p *models.Principal, name string) error {
	const op = "group.delete"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if _, err := s.setStatus(ctx, op, p, name, models.GroupStatusInactive); err != nil {
		return err
	}

	if err := s.assignments.RemoveAllForGroup(ctx, p.TenantID, name); err != nil {
		metrics.RecordCascadeCleanupFailure("group")
		metrics.RecordAdminOperation(op, "cleanup_failed")
		return fail(s.audit, p, domain.CleanupFailed(op, "group", name, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", name)
	return nil
}

// Reactivate reverses a soft delete, flipping the status back to ACTIVE.
// Role assignments removed by the delete are not restored.
func (s *GroupService) Reactivate(ctx context.Context, p *models.Principal, name string) (*models.Group, error) {
	const op = "group.reactivate"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	group, err := s.setStatus(ctx, op, p, name, models.GroupStatusActive)
	if err != nil {
		return nil, err
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", name)
	return group, nil
}

// AssignRole grants the role to the group. The group is validated with the
// directory first, then the role against the store; a missing group
// short-circuits before the role lookup.
func (s *GroupService) AssignRole(ctx context.Context, p *models.Principal, groupName, roleName string) error {
	const op = "group.assign_role"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if _, err := s.directory.GetGroup(ctx, p.TenantID, groupName); err != nil {
		return fail(s.audit, p, err)
	}

	role, err := s.roles.FindByName(ctx, p.TenantID, roleName)
	if err != nil {
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if role == nil {
		return fail(s.audit, p, domain.NotFound(op, "role", roleName))
	}

	if err := s.assignments.AssignRoleToGroup(ctx, p.TenantID, groupName, roleName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "assign role "+roleName+" to group "+groupName, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", groupName)
	return nil
}

// UnassignRole removes the grant without existence checks.
func (s *GroupService) UnassignRole(ctx context.Context, p *models.Principal, groupName, roleName string) error {
	const op = "group.unassign_role"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.assignments.RemoveRoleFromGroup(ctx, p.TenantID, groupName, roleName); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.AssignmentFailed(op, "unassign role "+roleName+" from group "+groupName, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", groupName)
	return nil
}

// ListRolesForGroup lists the role names assigned to the group. NotFound if
// the directory does not know the group.
func (s *GroupService) ListRolesForGroup(ctx context.Context, p *models.Principal, groupName string) ([]string, error) {
	const op = "group.list_roles"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	if _, err := s.directory.GetGroup(ctx, p.TenantID, groupName); err != nil {
		return nil, fail(s.audit, p, err)
	}

	names, err := s.assignments.FindRolesForGroup(ctx, p.TenantID, groupName)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}

// ListGroupsForRole lists the group names the role is assigned to. NotFound
// if the role does not exist.
func (s *GroupService) ListGroupsForRole(ctx context.Context, p *models.Principal, roleName string) ([]string, error) {
	const op = "group.list_for_role"
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

	names, err := s.assignments.FindGroupsForRole(ctx, p.TenantID, roleName)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}

// ListUsers returns one page of the group's members from the directory.
func (s *GroupService) ListUsers(ctx context.Context, p *models.Principal, groupName string, opts models.ListOptions) ([]models.User, string, error) {
	const op = "group.list_users"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}
	users, cursor, err := s.directory.ListUsersInGroup(ctx, p.TenantID, groupName, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, err)
	}
	return users, cursor, nil
}

// AddUser adds a directory user to the group.
func (s *GroupService) AddUser(ctx context.Context, p *models.Principal, groupName, username string) error {
	const op = "group.add_user"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.directory.AddUserToGroup(ctx, p.TenantID, groupName, username); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, err)
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", groupName)
	return nil
}

// RemoveUser removes a directory user from the group.
func (s *GroupService) RemoveUser(ctx context.Context, p *models.Principal, groupName, username string) error {
	const op = "group.remove_user"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	if err := s.directory.RemoveUserFromGroup(ctx, p.TenantID, groupName, username); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, err)
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "group", groupName)
	return nil
}
