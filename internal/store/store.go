// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package store persists RBAC and policy metadata in an embedded BadgerDB
// document store. All keys are tenant-scoped and '/'-separated; entity names
// never contain '/' (enforced by request validation), so prefix scans are
// unambiguous.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/logging"
)

// DefaultListLimit applies when a list operation passes no limit.
const DefaultListLimit = 50

// MaxListLimit caps a single page.
const MaxListLimit = 1000

// Store wraps the Badger database and exposes the entity repositories.
type Store struct {
	db  *badger.DB
	cfg config.StoreConfig
}

// Open opens (or creates) the document store described by cfg.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Badger's own logger is noisy at INFO; route through zerolog at debug.
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying Badger handle for repositories.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Roles returns the role repository.
func (s *Store) Roles() *RoleStore {
	return &RoleStore{db: s.db}
}

// Permissions returns the permission repository.
func (s *Store) Permissions() *PermissionStore {
	return &PermissionStore{db: s.db}
}

// Assignments returns the assignment-edge repository.
func (s *Store) Assignments() *AssignmentStore {
	return &AssignmentStore{db: s.db}
}

// Policies returns the policy repository.
func (s *Store) Policies() *PolicyStore {
	return &PolicyStore{db: s.db}
}

// RunGC runs the value-log garbage collector until ctx is done. It is a
// no-op for in-memory stores.
func (s *Store) RunGC(ctx context.Context) {
	if s.cfg.InMemory {
		<-ctx.Done()
		return
	}

	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when nothing was reclaimed.
			err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("value log GC failed")
			}
		}
	}
}

// encodeCursor converts the last-seen natural key into an opaque
// continuation token.
func encodeCursor(lastKey string) string {
	if lastKey == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(lastKey))
}

// decodeCursor converts an opaque continuation token back into the last-seen
// natural key. An empty cursor means "from the start".
func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("malformed cursor: %w", err)
	}
	return string(raw), nil
}

// clampLimit normalizes a requested page size.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// badgerLogger adapts Badger's logger interface to zerolog at debug level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
