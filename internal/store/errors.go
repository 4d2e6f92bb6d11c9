// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package store

import "errors"

// Store sentinel errors. The service layer translates these into the domain
// error taxonomy; the store itself stays ignorant of operation names.
var (
	// ErrDuplicateKey is returned by conditional creates when the natural
	// key is already taken. The check and the write happen inside one
	// transaction, so concurrent creates race into this error rather than
	// into silent duplication.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by operations that require the record to
	// exist (version lookups, current-pointer reads). Plain find operations
	// return nil instead.
	ErrNotFound = errors.New("record not found")
)
