// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

const rolePrefix = "role/"

func roleKey(tenantID, name string) []byte {
	return []byte(rolePrefix + tenantID + "/" + name)
}

// RoleStore persists role records keyed by tenant and role name.
type RoleStore struct {
	db *badger.DB
}

// Create persists a new role. The existence check and the write share one
// transaction, so a concurrent create of the same name yields
// ErrDuplicateKey for exactly one caller.
func (s *RoleStore) Create(ctx context.Context, role *models.Role) error {
	start := time.Now()
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	data, err := json.Marshal(role)
	if err != nil {
		return fmt.Errorf("marshal role: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := roleKey(role.TenantID, role.RoleName)
		_, getErr := txn.Get(key)
		if getErr == nil {
			return ErrDuplicateKey
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check role existence: %w", getErr)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOp("create", "role", time.Since(start), err)
	return err
}

// FindByName returns the role, or nil if it does not exist.
func (s *RoleStore) FindByName(ctx context.Context, tenantID, name string) (*models.Role, error) {
	start := time.Now()
	var role *models.Role

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roleKey(tenantID, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		return item.Value(func(val []byte) error {
			role = &models.Role{}
			return json.Unmarshal(val, role)
		})
	})
	metrics.RecordStoreOp("find", "role", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// List returns one page of the tenant's roles ordered by name, plus an
// opaque continuation cursor ("" when the page is the last).
func (s *RoleStore) List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Role, string, error) {
	start := time.Now()
	limit := clampLimit(opts.Limit)

	after, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, "", err
	}

	var roles []models.Role
	var nextCursor string

	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(rolePrefix + tenantID + "/")
		seek := prefix
		if after != "" {
			// '0' is the smallest byte allowed in names; appending 0x00
			// positions the iterator just past the cursor key.
			seek = append(roleKey(tenantID, after), 0)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if len(roles) == limit {
				nextCursor = encodeCursor(roles[len(roles)-1].RoleName)
				return nil
			}
			var role models.Role
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &role)
			}); err != nil {
				return fmt.Errorf("decode role: %w", err)
			}
			roles = append(roles, role)
		}
		return nil
	})
	metrics.RecordStoreOp("list", "role", time.Since(start), err)
	if err != nil {
		return nil, "", err
	}
	return roles, nextCursor, nil
}

// Update overwrites the role's mutable fields. Returns nil without error if
// the role does not exist.
func (s *RoleStore) Update(ctx context.Context, tenantID, name string, description string) (*models.Role, error) {
	start := time.Now()
	var updated *models.Role

	err := s.db.Update(func(txn *badger.Txn) error {
		key := roleKey(tenantID, name)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}

		var role models.Role
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &role)
		}); err != nil {
			return fmt.Errorf("decode role: %w", err)
		}

		role.Description = description
		role.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&role)
		if err != nil {
			return fmt.Errorf("marshal role: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		updated = &role
		return nil
	})
	metrics.RecordStoreOp("update", "role", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the role record. Returns false if it did not exist.
func (s *RoleStore) Delete(ctx context.Context, tenantID, name string) (bool, error) {
	start := time.Now()
	found := false

	err := s.db.Update(func(txn *badger.Txn) error {
		key := roleKey(tenantID, name)
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		found = true
		return txn.Delete(key)
	})
	metrics.RecordStoreOp("delete", "role", time.Since(start), err)
	if err != nil {
		return false, err
	}
	return found, nil
}
