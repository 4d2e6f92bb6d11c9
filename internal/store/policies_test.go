// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tessera-io/tessera/internal/models"
)

func TestPolicyStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	p := &models.Policy{
		TenantID:   "acme",
		ID:         "pol-1",
		PolicyName: "doc-access",
		Definition: "allow editors",
		Language:   "rego",
	}
	if err := policies.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Version != 1 || !p.IsCurrent {
		t.Errorf("created policy = v%d current=%v, want v1 current", p.Version, p.IsCurrent)
	}

	byID, err := policies.FindByID(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if byID == nil || byID.PolicyName != "doc-access" {
		t.Fatalf("FindByID = %+v", byID)
	}

	byName, err := policies.FindByName(ctx, "acme", "doc-access")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if byName == nil || byName.ID != "pol-1" {
		t.Fatalf("FindByName = %+v", byName)
	}
}

func TestPolicyStoreCreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "a", PolicyName: "doc-access"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "b", PolicyName: "doc-access"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPolicyStoreAppendVersion(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-1", PolicyName: "doc-access", Definition: "v1 body", Language: "rego",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next, err := policies.AppendVersion(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-1", PolicyName: "doc-access", Definition: "v2 body", Language: "rego",
	})
	if err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}
	if next.Version != 2 || !next.IsCurrent {
		t.Errorf("appended = v%d current=%v, want v2 current", next.Version, next.IsCurrent)
	}

	current, err := policies.FindByID(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if current.Definition != "v2 body" {
		t.Errorf("current definition = %q, want %q", current.Definition, "v2 body")
	}

	// Exactly one current record, with monotonically increasing versions.
	versions, err := policies.ListVersions(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}
	currentCount := 0
	for i, v := range versions {
		if v.Version != i+1 {
			t.Errorf("versions[%d].Version = %d, want %d", i, v.Version, i+1)
		}
		if v.IsCurrent {
			currentCount++
		}
	}
	if currentCount != 1 {
		t.Errorf("current records = %d, want exactly 1", currentCount)
	}
}

func TestPolicyStoreAppendVersionUnknownID(t *testing.T) {
	policies := newTestStore(t).Policies()

	_, err := policies.AppendVersion(context.Background(), &models.Policy{
		TenantID: "acme", ID: "ghost", PolicyName: "x",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPolicyStoreRename(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "pol-1", PolicyName: "old-name"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := policies.AppendVersion(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-1", PolicyName: "new-name",
	}); err != nil {
		t.Fatalf("AppendVersion rename: %v", err)
	}

	old, err := policies.FindByName(ctx, "acme", "old-name")
	if err != nil {
		t.Fatalf("FindByName old: %v", err)
	}
	if old != nil {
		t.Errorf("old name still resolves: %+v", old)
	}

	renamed, err := policies.FindByName(ctx, "acme", "new-name")
	if err != nil {
		t.Fatalf("FindByName new: %v", err)
	}
	if renamed == nil || renamed.ID != "pol-1" || renamed.Version != 2 {
		t.Errorf("renamed = %+v", renamed)
	}
}

func TestPolicyStoreRenameConflict(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "pol-1", PolicyName: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "pol-2", PolicyName: "beta"}); err != nil {
		t.Fatal(err)
	}

	_, err := policies.AppendVersion(ctx, &models.Policy{TenantID: "acme", ID: "pol-1", PolicyName: "beta"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// The failed rename must not have produced a new version.
	versions, err := policies.ListVersions(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 {
		t.Errorf("version count after failed rename = %d, want 1", len(versions))
	}
}

func TestPolicyStoreGetVersion(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-1", PolicyName: "doc-access", Definition: "v1 body",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := policies.AppendVersion(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-1", PolicyName: "doc-access", Definition: "v2 body",
	}); err != nil {
		t.Fatal(err)
	}

	v1, err := policies.GetVersion(ctx, "acme", "pol-1", 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v1 == nil || v1.Definition != "v1 body" || v1.IsCurrent {
		t.Errorf("v1 = %+v", v1)
	}

	missing, err := policies.GetVersion(ctx, "acme", "pol-1", 9)
	if err != nil {
		t.Fatalf("GetVersion missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing version, got %+v", missing)
	}
}

func TestPolicyStoreList(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	names := []string{"alpha", "beta", "gamma"}
	for i, name := range names {
		if err := policies.Create(ctx, &models.Policy{
			TenantID: "acme", ID: "pol-" + name, PolicyName: name, Definition: "body",
		}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	// A later version must not change what List returns for the entry.
	if _, err := policies.AppendVersion(ctx, &models.Policy{
		TenantID: "acme", ID: "pol-beta", PolicyName: "beta", Definition: "body v2",
	}); err != nil {
		t.Fatal(err)
	}

	page1, cursor, err := policies.List(ctx, "acme", models.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page1) != 2 || page1[0].PolicyName != "alpha" || page1[1].PolicyName != "beta" {
		t.Fatalf("page 1 = %+v", page1)
	}
	if page1[1].Version != 2 {
		t.Errorf("beta version in list = %d, want 2", page1[1].Version)
	}
	if cursor == "" {
		t.Fatal("expected continuation cursor")
	}

	page2, cursor, err := policies.List(ctx, "acme", models.ListOptions{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].PolicyName != "gamma" || cursor != "" {
		t.Errorf("page 2 = %+v cursor=%q", page2, cursor)
	}
}

func TestPolicyStoreDelete(t *testing.T) {
	ctx := context.Background()
	policies := newTestStore(t).Policies()

	if err := policies.Create(ctx, &models.Policy{TenantID: "acme", ID: "pol-1", PolicyName: "doc-access"}); err != nil {
		t.Fatal(err)
	}
	if _, err := policies.AppendVersion(ctx, &models.Policy{TenantID: "acme", ID: "pol-1", PolicyName: "doc-access"}); err != nil {
		t.Fatal(err)
	}

	found, err := policies.Delete(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}

	if got, err := policies.FindByID(ctx, "acme", "pol-1"); err != nil || got != nil {
		t.Errorf("FindByID after delete = (%+v, %v)", got, err)
	}
	if got, err := policies.FindByName(ctx, "acme", "doc-access"); err != nil || got != nil {
		t.Errorf("FindByName after delete = (%+v, %v)", got, err)
	}
	versions, err := policies.ListVersions(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 0 {
		t.Errorf("versions after delete = %d, want 0", len(versions))
	}

	found, err = policies.Delete(ctx, "acme", "pol-1")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if found {
		t.Error("expected found=false for already-deleted policy")
	}
}
