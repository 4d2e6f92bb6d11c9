// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tessera-io/tessera/internal/domain"
)

func newRoleFixture() (*RoleService, *fakeRoleRepo, *fakePermRepo, *fakeAssignments) {
	roles := newFakeRoleRepo()
	perms := newFakePermRepo()
	assignments := newFakeAssignments()
	svc := NewRoleService(roles, perms, assignments, testAuthorizer(), testAudit())
	return svc, roles, perms, assignments
}

func TestRoleServiceCreate(t *testing.T) {
	svc, _, _, _ := newRoleFixture()
	ctx := context.Background()

	role, err := svc.Create(ctx, adminPrincipal, "editor", "can edit")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if role.TenantID != "acme" || role.RoleName != "editor" {
		t.Errorf("role = %+v", role)
	}

	_, err = svc.Create(ctx, adminPrincipal, "editor", "")
	if !domain.IsNameExists(err) {
		t.Errorf("expected NameExists, got %v", err)
	}
}

func TestRoleServiceGetMissingReturnsNil(t *testing.T) {
	svc, _, _, _ := newRoleFixture()

	role, err := svc.Get(context.Background(), adminPrincipal, "ghost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if role != nil {
		t.Errorf("expected nil, got %+v", role)
	}
}

func TestRoleServiceDeleteMissing(t *testing.T) {
	svc, _, _, _ := newRoleFixture()

	err := svc.Delete(context.Background(), adminPrincipal, "ghost")
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

// Create role "editor", grant it "doc:write", delete the role: the
// permission keeps existing but no role references it, and the role is gone.
func TestRoleServiceDeleteCascade(t *testing.T) {
	svc, _, perms, assignments := newRoleFixture()
	permSvc := NewPermissionService(perms, assignments, testAuthorizer(), testAudit())
	ctx := context.Background()

	if _, err := svc.Create(ctx, adminPrincipal, "editor", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := permSvc.Create(ctx, adminPrincipal, "doc:write", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignPermission(ctx, adminPrincipal, "editor", "doc:write"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, adminPrincipal, "editor"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	holders, err := permSvc.ListRolesForPermission(ctx, adminPrincipal, "doc:write")
	if err != nil {
		t.Fatalf("ListRolesForPermission: %v", err)
	}
	if len(holders) != 0 {
		t.Errorf("roles for doc:write after delete = %v, want none", holders)
	}

	role, err := svc.Get(ctx, adminPrincipal, "editor")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if role != nil {
		t.Errorf("deleted role still resolves: %+v", role)
	}
}

func TestRoleServiceDeleteCleanupFailure(t *testing.T) {
	svc, roles, _, assignments := newRoleFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, adminPrincipal, "editor", ""); err != nil {
		t.Fatal(err)
	}
	assignments.removeAllErr = errors.New("disk full")

	err := svc.Delete(ctx, adminPrincipal, "editor")
	if !domain.IsCleanupFailed(err) {
		t.Fatalf("expected CleanupFailed, got %v", err)
	}

	// The primary delete is not rolled back.
	if _, ok := roles.items["acme/editor"]; ok {
		t.Error("role record still present after cleanup failure")
	}
}

func TestRoleServiceAssignPermissionValidation(t *testing.T) {
	svc, _, perms, _ := newRoleFixture()
	ctx := context.Background()

	// Missing role short-circuits before the permission lookup.
	err := svc.AssignPermission(ctx, adminPrincipal, "ghost", "doc:write")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if perms.calls != 0 {
		t.Errorf("permission repo consulted %d times for a missing role, want 0", perms.calls)
	}

	if _, err := svc.Create(ctx, adminPrincipal, "editor", ""); err != nil {
		t.Fatal(err)
	}
	err = svc.AssignPermission(ctx, adminPrincipal, "editor", "ghost")
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for missing permission, got %v", err)
	}
}

func TestRoleServiceAssignPermissionIdempotent(t *testing.T) {
	svc, _, perms, _ := newRoleFixture()
	permSvc := NewPermissionService(perms, newFakeAssignments(), testAuthorizer(), testAudit())
	ctx := context.Background()

	if _, err := svc.Create(ctx, adminPrincipal, "editor", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := permSvc.Create(ctx, adminPrincipal, "doc:write", ""); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.AssignPermission(ctx, adminPrincipal, "editor", "doc:write"); err != nil {
			t.Fatalf("assign #%d: %v", i+1, err)
		}
	}

	granted, err := svc.ListPermissionsForRole(ctx, adminPrincipal, "editor")
	if err != nil {
		t.Fatal(err)
	}
	if len(granted) != 1 {
		t.Errorf("grant count after repeated assigns = %d, want 1", len(granted))
	}
}

func TestRoleServiceUnassignAbsentPermission(t *testing.T) {
	svc, _, _, _ := newRoleFixture()

	if err := svc.UnassignPermission(context.Background(), adminPrincipal, "editor", "doc:write"); err != nil {
		t.Errorf("unassigning an absent edge should succeed: %v", err)
	}
}

func TestRoleServiceListPermissionsMissingRole(t *testing.T) {
	svc, _, _, _ := newRoleFixture()

	_, err := svc.ListPermissionsForRole(context.Background(), adminPrincipal, "ghost")
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestPermissionServiceDeleteCascade(t *testing.T) {
	roles := newFakeRoleRepo()
	perms := newFakePermRepo()
	assignments := newFakeAssignments()
	roleSvc := NewRoleService(roles, perms, assignments, testAuthorizer(), testAudit())
	permSvc := NewPermissionService(perms, assignments, testAuthorizer(), testAudit())
	ctx := context.Background()

	if _, err := roleSvc.Create(ctx, adminPrincipal, "editor", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := permSvc.Create(ctx, adminPrincipal, "doc:write", ""); err != nil {
		t.Fatal(err)
	}
	if err := roleSvc.AssignPermission(ctx, adminPrincipal, "editor", "doc:write"); err != nil {
		t.Fatal(err)
	}

	if err := permSvc.Delete(ctx, adminPrincipal, "doc:write"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	granted, err := roleSvc.ListPermissionsForRole(ctx, adminPrincipal, "editor")
	if err != nil {
		t.Fatal(err)
	}
	if len(granted) != 0 {
		t.Errorf("permissions for editor after delete = %v, want none", granted)
	}
}

func TestPermissionServiceListRolesMissingPermission(t *testing.T) {
	permSvc := NewPermissionService(newFakePermRepo(), newFakeAssignments(), testAuthorizer(), testAudit())

	_, err := permSvc.ListRolesForPermission(context.Background(), adminPrincipal, "ghost")
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
