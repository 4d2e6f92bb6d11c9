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

const permissionPrefix = "perm/"

func permissionKey(tenantID, name string) []byte {
	return []byte(permissionPrefix + tenantID + "/" + name)
}

// PermissionStore persists permission records keyed by tenant and
// permission name. Structurally identical to RoleStore.
type PermissionStore struct {
	db *badger.DB
}

// Create persists a new permission; ErrDuplicateKey if the name is taken.
func (s *PermissionStore) Create(ctx context.Context, perm *models.Permission) error {
	start := time.Now()
	now := time.Now().UTC()
	perm.CreatedAt = now
	perm.UpdatedAt = now

	data, err := json.Marshal(perm)
	if err != nil {
		return fmt.Errorf("marshal permission: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := permissionKey(perm.TenantID, perm.PermissionName)
		_, getErr := txn.Get(key)
		if getErr == nil {
			return ErrDuplicateKey
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check permission existence: %w", getErr)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOp("create", "permission", time.Since(start), err)
	return err
}

// FindByName returns the permission, or nil if it does not exist.
func (s *PermissionStore) FindByName(ctx context.Context, tenantID, name string) (*models.Permission, error) {
	start := time.Now()
	var perm *models.Permission

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(permissionKey(tenantID, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get permission: %w", err)
		}
		return item.Value(func(val []byte) error {
			perm = &models.Permission{}
			return json.Unmarshal(val, perm)
		})
	})
	metrics.RecordStoreOp("find", "permission", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return perm, nil
}

// List returns one page of the tenant's permissions ordered by name.
func (s *PermissionStore) List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Permission, string, error) {
	start := time.Now()
	limit := clampLimit(opts.Limit)

	after, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, "", err
	}

	var perms []models.Permission
	var nextCursor string

	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(permissionPrefix + tenantID + "/")
		seek := prefix
		if after != "" {
			seek = append(permissionKey(tenantID, after), 0)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if len(perms) == limit {
				nextCursor = encodeCursor(perms[len(perms)-1].PermissionName)
				return nil
			}
			var perm models.Permission
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &perm)
			}); err != nil {
				return fmt.Errorf("decode permission: %w", err)
			}
			perms = append(perms, perm)
		}
		return nil
	})
	metrics.RecordStoreOp("list", "permission", time.Since(start), err)
	if err != nil {
		return nil, "", err
	}
	return perms, nextCursor, nil
}

// Update overwrites the permission's mutable fields. Returns nil without
// error if the permission does not exist.
func (s *PermissionStore) Update(ctx context.Context, tenantID, name string, description string) (*models.Permission, error) {
	start := time.Now()
	var updated *models.Permission

	err := s.db.Update(func(txn *badger.Txn) error {
		key := permissionKey(tenantID, name)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get permission: %w", err)
		}

		var perm models.Permission
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &perm)
		}); err != nil {
			return fmt.Errorf("decode permission: %w", err)
		}

		perm.Description = description
		perm.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&perm)
		if err != nil {
			return fmt.Errorf("marshal permission: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		updated = &perm
		return nil
	})
	metrics.RecordStoreOp("update", "permission", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the permission record. Returns false if it did not exist.
func (s *PermissionStore) Delete(ctx context.Context, tenantID, name string) (bool, error) {
	start := time.Now()
	found := false

	err := s.db.Update(func(txn *badger.Txn) error {
		key := permissionKey(tenantID, name)
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get permission: %w", err)
		}
		found = true
		return txn.Delete(key)
	})
	metrics.RecordStoreOp("delete", "permission", time.Since(start), err)
	if err != nil {
		return false, err
	}
	return found, nil
}
