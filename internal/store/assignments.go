// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tessera-io/tessera/internal/metrics"
)

// relation describes one of the four many-to-many edge kinds. Every edge is
// written under both directions so either endpoint can be listed without a
// full scan:
//
//	edge/<code>/<tenant>/<leftMark>/<left>/<right>
//	edge/<code>/<tenant>/<rightMark>/<right>/<left>
type relation struct {
	code      string
	leftMark  string
	rightMark string
}

var (
	relGroupRole      = relation{code: "gr", leftMark: "g", rightMark: "r"}
	relRolePermission = relation{code: "rp", leftMark: "r", rightMark: "p"}
	relUserRole       = relation{code: "ur", leftMark: "u", rightMark: "r"}
	relUserPermission = relation{code: "up", leftMark: "u", rightMark: "p"}
)

func edgeKey(rel relation, tenantID, mark, from, to string) []byte {
	return []byte("edge/" + rel.code + "/" + tenantID + "/" + mark + "/" + from + "/" + to)
}

func edgeSidePrefix(rel relation, tenantID, mark, from string) []byte {
	return []byte("edge/" + rel.code + "/" + tenantID + "/" + mark + "/" + from + "/")
}

// AssignmentStore persists the assignment graph: group-role, role-permission,
// user-role, and user-permission edges, keyed by tenant and both endpoint
// names.
type AssignmentStore struct {
	db *badger.DB
}

// assign writes both directions of an edge in one transaction. Writing an
// existing edge is an upsert, so re-assignment is idempotent.
func (s *AssignmentStore) assign(rel relation, tenantID, left, right string) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(edgeKey(rel, tenantID, rel.leftMark, left, right), []byte(right)); err != nil {
			return fmt.Errorf("set forward edge: %w", err)
		}
		if err := txn.Set(edgeKey(rel, tenantID, rel.rightMark, right, left), []byte(left)); err != nil {
			return fmt.Errorf("set reverse edge: %w", err)
		}
		return nil
	})
	metrics.RecordStoreOp("assign", "edge_"+rel.code, time.Since(start), err)
	return err
}

// remove deletes both directions of an edge. Removing an absent edge is not
// an error; cleanup paths rely on this.
func (s *AssignmentStore) remove(rel relation, tenantID, left, right string) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(edgeKey(rel, tenantID, rel.leftMark, left, right)); err != nil {
			return fmt.Errorf("delete forward edge: %w", err)
		}
		if err := txn.Delete(edgeKey(rel, tenantID, rel.rightMark, right, left)); err != nil {
			return fmt.Errorf("delete reverse edge: %w", err)
		}
		return nil
	})
	metrics.RecordStoreOp("remove", "edge_"+rel.code, time.Since(start), err)
	return err
}

// findSide lists the counterparts of one endpoint, ordered by name.
func (s *AssignmentStore) findSide(rel relation, tenantID, mark, from string) ([]string, error) {
	start := time.Now()
	var names []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := edgeSidePrefix(rel, tenantID, mark, from)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	metrics.RecordStoreOp("find", "edge_"+rel.code, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// removeAllSide removes every edge touching one endpoint of a relation,
// both directions, in a single transaction. The iterator is closed before
// the deletes; a writable transaction must not write while iterating.
func (s *AssignmentStore) removeAllSide(rel relation, tenantID, mark, otherMark, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := edgeSidePrefix(rel, tenantID, mark, name)
		var counterparts []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			counterparts = append(counterparts, string(key[len(prefix):]))
		}
		it.Close()

		for _, other := range counterparts {
			if err := txn.Delete(edgeKey(rel, tenantID, mark, name, other)); err != nil {
				return fmt.Errorf("delete edge: %w", err)
			}
			if err := txn.Delete(edgeKey(rel, tenantID, otherMark, other, name)); err != nil {
				return fmt.Errorf("delete reverse edge: %w", err)
			}
		}
		return nil
	})
}

// AssignRoleToGroup records a group-role edge.
func (s *AssignmentStore) AssignRoleToGroup(ctx context.Context, tenantID, groupName, roleName string) error {
	return s.assign(relGroupRole, tenantID, groupName, roleName)
}

// RemoveRoleFromGroup removes a group-role edge.
func (s *AssignmentStore) RemoveRoleFromGroup(ctx context.Context, tenantID, groupName, roleName string) error {
	return s.remove(relGroupRole, tenantID, groupName, roleName)
}

// FindRolesForGroup lists role names assigned to the group.
func (s *AssignmentStore) FindRolesForGroup(ctx context.Context, tenantID, groupName string) ([]string, error) {
	return s.findSide(relGroupRole, tenantID, relGroupRole.leftMark, groupName)
}

// FindGroupsForRole lists group names the role is assigned to.
func (s *AssignmentStore) FindGroupsForRole(ctx context.Context, tenantID, roleName string) ([]string, error) {
	return s.findSide(relGroupRole, tenantID, relGroupRole.rightMark, roleName)
}

// AssignPermissionToRole records a role-permission edge.
func (s *AssignmentStore) AssignPermissionToRole(ctx context.Context, tenantID, roleName, permissionName string) error {
	return s.assign(relRolePermission, tenantID, roleName, permissionName)
}

// RemovePermissionFromRole removes a role-permission edge.
func (s *AssignmentStore) RemovePermissionFromRole(ctx context.Context, tenantID, roleName, permissionName string) error {
	return s.remove(relRolePermission, tenantID, roleName, permissionName)
}

// FindPermissionsForRole lists permission names assigned to the role.
func (s *AssignmentStore) FindPermissionsForRole(ctx context.Context, tenantID, roleName string) ([]string, error) {
	return s.findSide(relRolePermission, tenantID, relRolePermission.leftMark, roleName)
}

// FindRolesForPermission lists role names holding the permission.
func (s *AssignmentStore) FindRolesForPermission(ctx context.Context, tenantID, permissionName string) ([]string, error) {
	return s.findSide(relRolePermission, tenantID, relRolePermission.rightMark, permissionName)
}

// AssignRoleToUser records a user-role edge.
func (s *AssignmentStore) AssignRoleToUser(ctx context.Context, tenantID, username, roleName string) error {
	return s.assign(relUserRole, tenantID, username, roleName)
}

// RemoveRoleFromUser removes a user-role edge.
func (s *AssignmentStore) RemoveRoleFromUser(ctx context.Context, tenantID, username, roleName string) error {
	return s.remove(relUserRole, tenantID, username, roleName)
}

// FindRolesForUser lists role names assigned directly to the user.
func (s *AssignmentStore) FindRolesForUser(ctx context.Context, tenantID, username string) ([]string, error) {
	return s.findSide(relUserRole, tenantID, relUserRole.leftMark, username)
}

// FindUsersForRole lists usernames holding the role directly.
func (s *AssignmentStore) FindUsersForRole(ctx context.Context, tenantID, roleName string) ([]string, error) {
	return s.findSide(relUserRole, tenantID, relUserRole.rightMark, roleName)
}

// AssignPermissionToUser records a user-permission edge.
func (s *AssignmentStore) AssignPermissionToUser(ctx context.Context, tenantID, username, permissionName string) error {
	return s.assign(relUserPermission, tenantID, username, permissionName)
}

// RemovePermissionFromUser removes a user-permission edge.
func (s *AssignmentStore) RemovePermissionFromUser(ctx context.Context, tenantID, username, permissionName string) error {
	return s.remove(relUserPermission, tenantID, username, permissionName)
}

// FindPermissionsForUser lists permission names granted directly to the user.
func (s *AssignmentStore) FindPermissionsForUser(ctx context.Context, tenantID, username string) ([]string, error) {
	return s.findSide(relUserPermission, tenantID, relUserPermission.leftMark, username)
}

// FindUsersForPermission lists usernames holding the permission directly.
func (s *AssignmentStore) FindUsersForPermission(ctx context.Context, tenantID, permissionName string) ([]string, error) {
	return s.findSide(relUserPermission, tenantID, relUserPermission.rightMark, permissionName)
}

// sideRef names one side of one relation for bulk cleanup.
type sideRef struct {
	rel       relation
	mark      string
	otherMark string
}

func (s *AssignmentStore) removeAll(tenantID, name string, refs ...sideRef) error {
	for _, ref := range refs {
		if err := s.removeAllSide(ref.rel, tenantID, ref.mark, ref.otherMark, name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAllForRole removes every edge referencing the role: group-role,
// role-permission, and user-role.
func (s *AssignmentStore) RemoveAllForRole(ctx context.Context, tenantID, roleName string) error {
	start := time.Now()
	err := s.removeAll(tenantID, roleName,
		sideRef{relGroupRole, relGroupRole.rightMark, relGroupRole.leftMark},
		sideRef{relRolePermission, relRolePermission.leftMark, relRolePermission.rightMark},
		sideRef{relUserRole, relUserRole.rightMark, relUserRole.leftMark},
	)
	metrics.RecordStoreOp("remove_all", "role", time.Since(start), err)
	return err
}

// RemoveAllForPermission removes every edge referencing the permission:
// role-permission and user-permission.
func (s *AssignmentStore) RemoveAllForPermission(ctx context.Context, tenantID, permissionName string) error {
	start := time.Now()
	err := s.removeAll(tenantID, permissionName,
		sideRef{relRolePermission, relRolePermission.rightMark, relRolePermission.leftMark},
		sideRef{relUserPermission, relUserPermission.rightMark, relUserPermission.leftMark},
	)
	metrics.RecordStoreOp("remove_all", "permission", time.Since(start), err)
	return err
}

// RemoveAllForGroup removes every group-role edge referencing the group.
func (s *AssignmentStore) RemoveAllForGroup(ctx context.Context, tenantID, groupName string) error {
	start := time.Now()
	err := s.removeAll(tenantID, groupName,
		sideRef{relGroupRole, relGroupRole.leftMark, relGroupRole.rightMark},
	)
	metrics.RecordStoreOp("remove_all", "group", time.Since(start), err)
	return err
}

// RemoveAllForUser removes every user-role and user-permission edge
// referencing the user.
func (s *AssignmentStore) RemoveAllForUser(ctx context.Context, tenantID, username string) error {
	start := time.Now()
	err := s.removeAll(tenantID, username,
		sideRef{relUserRole, relUserRole.leftMark, relUserRole.rightMark},
		sideRef{relUserPermission, relUserPermission.leftMark, relUserPermission.rightMark},
	)
	metrics.RecordStoreOp("remove_all", "user", time.Since(start), err)
	return err
}
