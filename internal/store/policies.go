// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// Policy key layout. Version numbers are zero-padded so the lexicographic
// iteration order is the numeric order.
//
//	pol/<tenant>/v/<id>/<version>   -> policy version record
//	poln/<tenant>/<name>            -> policy id (name index)
//	polc/<tenant>/<id>              -> current version number
const policyVersionDigits = 10

func policyVersionKey(tenantID, id string, version int) []byte {
	return []byte(fmt.Sprintf("pol/%s/v/%s/%0*d", tenantID, id, policyVersionDigits, version))
}

func policyVersionPrefix(tenantID, id string) []byte {
	return []byte("pol/" + tenantID + "/v/" + id + "/")
}

func policyNameKey(tenantID, name string) []byte {
	return []byte("poln/" + tenantID + "/" + name)
}

func policyNamePrefix(tenantID string) []byte {
	return []byte("poln/" + tenantID + "/")
}

func policyCurrentKey(tenantID, id string) []byte {
	return []byte("polc/" + tenantID + "/" + id)
}

// PolicyStore persists policy version chains. For each (tenant, id) exactly
// one record is current, maintained atomically: the version append and the
// current-pointer flip share a transaction.
type PolicyStore struct {
	db *badger.DB
}

// Create persists version 1 of a new policy as current. ErrDuplicateKey if
// the name is already taken in the tenant.
func (s *PolicyStore) Create(ctx context.Context, p *models.Policy) error {
	start := time.Now()
	now := time.Now().UTC()
	p.Version = 1
	p.IsCurrent = true
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.db.Update(func(txn *badger.Txn) error {
		nameKey := policyNameKey(p.TenantID, p.PolicyName)
		_, getErr := txn.Get(nameKey)
		if getErr == nil {
			return ErrDuplicateKey
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check policy name: %w", getErr)
		}

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal policy: %w", err)
		}
		if err := txn.Set(policyVersionKey(p.TenantID, p.ID, 1), data); err != nil {
			return err
		}
		if err := txn.Set(nameKey, []byte(p.ID)); err != nil {
			return err
		}
		return txn.Set(policyCurrentKey(p.TenantID, p.ID), []byte("1"))
	})
	metrics.RecordStoreOp("create", "policy", time.Since(start), err)
	return err
}

// AppendVersion writes the next version of an existing policy as current and
// demotes the previous current record, all in one transaction. The input
// carries the full desired content of the new version; the store assigns the
// version number. A rename that collides with a different policy id yields
// ErrDuplicateKey; ErrNotFound if the id has no version chain.
func (s *PolicyStore) AppendVersion(ctx context.Context, p *models.Policy) (*models.Policy, error) {
	start := time.Now()
	var saved *models.Policy

	err := s.db.Update(func(txn *badger.Txn) error {
		current, curVersion, err := s.currentInTxn(txn, p.TenantID, p.ID)
		if err != nil {
			return err
		}

		if p.PolicyName != current.PolicyName {
			nameKey := policyNameKey(p.TenantID, p.PolicyName)
			item, getErr := txn.Get(nameKey)
			if getErr == nil {
				var ownerID string
				if err := item.Value(func(val []byte) error {
					ownerID = string(val)
					return nil
				}); err != nil {
					return fmt.Errorf("read name index: %w", err)
				}
				if ownerID != p.ID {
					return ErrDuplicateKey
				}
			} else if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return fmt.Errorf("check policy name: %w", getErr)
			}
			if err := txn.Delete(policyNameKey(p.TenantID, current.PolicyName)); err != nil {
				return fmt.Errorf("drop old name index: %w", err)
			}
			if err := txn.Set(nameKey, []byte(p.ID)); err != nil {
				return fmt.Errorf("set name index: %w", err)
			}
		}

		// Demote the previous current record in place.
		current.IsCurrent = false
		prevData, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal previous version: %w", err)
		}
		if err := txn.Set(policyVersionKey(p.TenantID, p.ID, curVersion), prevData); err != nil {
			return err
		}

		next := *p
		next.Version = curVersion + 1
		next.IsCurrent = true
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal policy: %w", err)
		}
		if err := txn.Set(policyVersionKey(p.TenantID, p.ID, next.Version), data); err != nil {
			return err
		}
		if err := txn.Set(policyCurrentKey(p.TenantID, p.ID), []byte(strconv.Itoa(next.Version))); err != nil {
			return err
		}
		saved = &next
		return nil
	})
	metrics.RecordStoreOp("append_version", "policy", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// currentInTxn loads the current version record inside a transaction.
func (s *PolicyStore) currentInTxn(txn *badger.Txn, tenantID, id string) (*models.Policy, int, error) {
	item, err := txn.Get(policyCurrentKey(tenantID, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get current pointer: %w", err)
	}

	var version int
	if err := item.Value(func(val []byte) error {
		v, convErr := strconv.Atoi(string(val))
		if convErr != nil {
			return fmt.Errorf("corrupt current pointer: %w", convErr)
		}
		version = v
		return nil
	}); err != nil {
		return nil, 0, err
	}

	recItem, err := txn.Get(policyVersionKey(tenantID, id, version))
	if err != nil {
		return nil, 0, fmt.Errorf("get current version record: %w", err)
	}
	var p models.Policy
	if err := recItem.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	}); err != nil {
		return nil, 0, err
	}
	return &p, version, nil
}

// FindByID returns the current version of the policy, or nil if the id has
// no version chain in the tenant.
func (s *PolicyStore) FindByID(ctx context.Context, tenantID, id string) (*models.Policy, error) {
	start := time.Now()
	var found *models.Policy

	err := s.db.View(func(txn *badger.Txn) error {
		p, _, err := s.currentInTxn(txn, tenantID, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	metrics.RecordStoreOp("find", "policy", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByName resolves the name index and returns the current version, or
// nil if the name is unknown.
func (s *PolicyStore) FindByName(ctx context.Context, tenantID, name string) (*models.Policy, error) {
	start := time.Now()
	var found *models.Policy

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(policyNameKey(tenantID, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get name index: %w", err)
		}

		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		p, _, err := s.currentInTxn(txn, tenantID, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	metrics.RecordStoreOp("find", "policy", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List returns one page of the tenant's current policy versions ordered by
// policy name.
func (s *PolicyStore) List(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Policy, string, error) {
	start := time.Now()
	limit := clampLimit(opts.Limit)

	after, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, "", err
	}

	var policies []models.Policy
	var lastName, nextCursor string

	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := policyNamePrefix(tenantID)
		seek := prefix
		if after != "" {
			seek = append(policyNameKey(tenantID, after), 0)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if len(policies) == limit {
				nextCursor = encodeCursor(lastName)
				return nil
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			p, _, err := s.currentInTxn(txn, tenantID, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			policies = append(policies, *p)
			lastName = string(it.Item().Key()[len(prefix):])
		}
		return nil
	})
	metrics.RecordStoreOp("list", "policy", time.Since(start), err)
	if err != nil {
		return nil, "", err
	}
	return policies, nextCursor, nil
}

// GetVersion returns one historical version record, or nil if that version
// does not exist.
func (s *PolicyStore) GetVersion(ctx context.Context, tenantID, id string, version int) (*models.Policy, error) {
	start := time.Now()
	var found *models.Policy

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(policyVersionKey(tenantID, id, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get policy version: %w", err)
		}
		return item.Value(func(val []byte) error {
			found = &models.Policy{}
			return json.Unmarshal(val, found)
		})
	})
	metrics.RecordStoreOp("get_version", "policy", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListVersions returns every stored version for the id, ordered by version
// ascending. An unknown id yields an empty slice.
func (s *PolicyStore) ListVersions(ctx context.Context, tenantID, id string) ([]models.Policy, error) {
	start := time.Now()
	var versions []models.Policy

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := policyVersionPrefix(tenantID, id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.Policy
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode policy version: %w", err)
			}
			versions = append(versions, p)
		}
		return nil
	})
	metrics.RecordStoreOp("list_versions", "policy", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Delete removes the whole version chain, the name index, and the current
// pointer for the id, in one transaction. Returns false if the id has no
// version chain.
func (s *PolicyStore) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	start := time.Now()
	found := false

	err := s.db.Update(func(txn *badger.Txn) error {
		current, _, err := s.currentInTxn(txn, tenantID, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		prefix := policyVersionPrefix(tenantID, id)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete version record: %w", err)
			}
		}
		if err := txn.Delete(policyNameKey(tenantID, current.PolicyName)); err != nil {
			return fmt.Errorf("delete name index: %w", err)
		}
		return txn.Delete(policyCurrentKey(tenantID, id))
	})
	metrics.RecordStoreOp("delete", "policy", time.Since(start), err)
	if err != nil {
		return false, err
	}
	return found, nil
}
