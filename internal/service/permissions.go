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

// PermissionService implements permission administration.
type PermissionService struct {
	permissions PermissionRepository
	assignments AssignmentRepository
	authz       *Authorizer
	audit       *audit.Logger
}

// NewPermissionService wires a permission service.
func NewPermissionService(permissions PermissionRepository, assignments AssignmentRepository, authz *Authorizer, auditLog *audit.Logger) *PermissionService {
	return &PermissionService{
		permissions: permissions,
		assignments: assignments,
		authz:       authz,
		audit:       auditLog,
	}
}

// Create persists a new permission. NameExists if the name is taken.
func (s *PermissionService) Create(ctx context.Context, p *models.Principal, name, description string) (*models.Permission, error) {
	const op = "permission.create"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	perm := &models.Permission{TenantID: p.TenantID, PermissionName: name, Description: description}
	if err := s.permissions.Create(ctx, perm); err != nil {
		metrics.RecordAdminOperation(op, "error")
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fail(s.audit, p, domain.NameExists(op, "permission", name))
		}
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "permission", name)
	return perm, nil
}

// Get returns the permission, or nil if it does not exist.
func (s *PermissionService) Get(ctx context.Context, p *models.Principal, name string) (*models.Permission, error) {
	const op = "permission.get"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	perm, err := s.permissions.FindByName(ctx, p.TenantID, name)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return perm, nil
}

// List returns one page of the tenant's permissions.
func (s *PermissionService) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Permission, string, error) {
	const op = "permission.list"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}

	perms, cursor, err := s.permissions.List(ctx, p.TenantID, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, domain.Wrap(op, err))
	}
	return perms, cursor, nil
}

// Update overwrites the permission description. Returns nil without error
// if the permission does not exist.
func (s *PermissionService) Update(ctx context.Context, p *models.Principal, name, description string) (*models.Permission, error) {
	const op = "permission.update"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	perm, err := s.permissions.Update(ctx, p.TenantID, name, description)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if perm != nil {
		metrics.RecordAdminOperation(op, "success")
		s.audit.Allowed(op, p, "permission", name)
	}
	return perm, nil
}

// Delete removes the permission and cascades removal of role-permission and
// user-permission edges, with the same two-phase semantics as role deletion.
func (s *PermissionService) Delete(ctx context.Context, p *models.Principal, name string) error {
	const op = "permission.delete"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	found, err := s.permissions.Delete(ctx, p.TenantID, name)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if !found {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.NotFound(op, "permission", name))
	}

	if err := s.assignments.RemoveAllForPermission(ctx, p.TenantID, name); err != nil {
		metrics.RecordCascadeCleanupFailure("permission")
		metrics.RecordAdminOperation(op, "cleanup_failed")
		return fail(s.audit, p, domain.CleanupFailed(op, "permission", name, err))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "permission", name)
	return nil
}

// ListRolesForPermission lists the roles holding the permission. NotFound
// if the permission does not exist.
func (s *PermissionService) ListRolesForPermission(ctx context.Context, p *models.Principal, name string) ([]string, error) {
	const op = "permission.list_roles"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	perm, err := s.permissions.FindByName(ctx, p.TenantID, name)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if perm == nil {
		return nil, fail(s.audit, p, domain.NotFound(op, "permission", name))
	}

	names, err := s.assignments.FindRolesForPermission(ctx, p.TenantID, name)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return names, nil
}
