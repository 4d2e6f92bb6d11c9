// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tessera-io/tessera/internal/models"
)

func TestRoleStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	role := &models.Role{TenantID: "acme", RoleName: "editor", Description: "can edit"}
	if err := roles.Create(ctx, role); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if role.CreatedAt.IsZero() || role.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set on create")
	}

	got, err := roles.FindByName(ctx, "acme", "editor")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil {
		t.Fatal("expected role, got nil")
	}
	if got.Description != "can edit" {
		t.Errorf("description = %q, want %q", got.Description, "can edit")
	}
}

func TestRoleStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	if err := roles.Create(ctx, &models.Role{TenantID: "acme", RoleName: "editor"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := roles.Create(ctx, &models.Role{TenantID: "acme", RoleName: "editor"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestRoleStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	if err := roles.Create(ctx, &models.Role{TenantID: "acme", RoleName: "editor"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Same name in another tenant is a distinct record.
	if err := roles.Create(ctx, &models.Role{TenantID: "globex", RoleName: "editor"}); err != nil {
		t.Fatalf("Create in second tenant: %v", err)
	}

	got, err := roles.FindByName(ctx, "globex", "editor")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil || got.TenantID != "globex" {
		t.Errorf("expected globex role, got %+v", got)
	}

	listed, _, err := roles.List(ctx, "acme", models.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("acme role count = %d, want 1", len(listed))
	}
}

func TestRoleStoreFindMissing(t *testing.T) {
	roles := newTestStore(t).Roles()

	got, err := roles.FindByName(context.Background(), "acme", "ghost")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing role, got %+v", got)
	}
}

func TestRoleStoreListPagination(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	for i := 0; i < 5; i++ {
		role := &models.Role{TenantID: "acme", RoleName: fmt.Sprintf("role-%02d", i)}
		if err := roles.Create(ctx, role); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	page1, cursor, err := roles.List(ctx, "acme", models.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List page 1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 size = %d, want 2", len(page1))
	}
	if cursor == "" {
		t.Fatal("expected continuation cursor after page 1")
	}
	if page1[0].RoleName != "role-00" || page1[1].RoleName != "role-01" {
		t.Errorf("page 1 order = %q, %q", page1[0].RoleName, page1[1].RoleName)
	}

	page2, cursor, err := roles.List(ctx, "acme", models.ListOptions{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page2) != 2 || page2[0].RoleName != "role-02" {
		t.Errorf("page 2 = %+v", page2)
	}

	page3, cursor, err := roles.List(ctx, "acme", models.ListOptions{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if len(page3) != 1 || page3[0].RoleName != "role-04" {
		t.Errorf("page 3 = %+v", page3)
	}
	if cursor != "" {
		t.Errorf("expected empty cursor on last page, got %q", cursor)
	}
}

func TestRoleStoreListBadCursor(t *testing.T) {
	roles := newTestStore(t).Roles()

	if _, _, err := roles.List(context.Background(), "acme", models.ListOptions{Cursor: "!!!"}); err == nil {
		t.Error("expected error for malformed cursor")
	}
}

func TestRoleStoreUpdate(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	if err := roles.Create(ctx, &models.Role{TenantID: "acme", RoleName: "editor", Description: "old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := roles.Update(ctx, "acme", "editor", "new")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated == nil || updated.Description != "new" {
		t.Errorf("updated = %+v", updated)
	}

	missing, err := roles.Update(ctx, "acme", "ghost", "x")
	if err != nil {
		t.Fatalf("Update missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing role, got %+v", missing)
	}
}

func TestRoleStoreDelete(t *testing.T) {
	ctx := context.Background()
	roles := newTestStore(t).Roles()

	if err := roles.Create(ctx, &models.Role{TenantID: "acme", RoleName: "editor"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := roles.Delete(ctx, "acme", "editor")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found {
		t.Error("expected found=true for existing role")
	}

	found, err = roles.Delete(ctx, "acme", "editor")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if found {
		t.Error("expected found=false for deleted role")
	}
}

func TestPermissionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	perms := newTestStore(t).Permissions()

	// Names with ':' are common for permissions and must survive keying.
	perm := &models.Permission{TenantID: "acme", PermissionName: "doc:write", Description: "write documents"}
	if err := perms.Create(ctx, perm); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := perms.FindByName(ctx, "acme", "doc:write")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil || got.Description != "write documents" {
		t.Errorf("got %+v", got)
	}

	if err := perms.Create(ctx, &models.Permission{TenantID: "acme", PermissionName: "doc:write"}); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	found, err := perms.Delete(ctx, "acme", "doc:write")
	if err != nil || !found {
		t.Errorf("Delete = (%v, %v), want (true, nil)", found, err)
	}
}
