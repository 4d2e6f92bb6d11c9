// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package domain defines the closed error taxonomy shared by all admin
// services. Callers branch on the error Kind rather than on type names or
// message strings; store and adapter failures are wrapped into this taxonomy
// exactly once at the boundary where they occur.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the closed set of outcomes the
// service layer can produce.
type Kind int

const (
	// KindUnknown is the zero value; it never classifies a constructed Error.
	KindUnknown Kind = iota

	// KindForbidden - caller lacks an admin-capable role. Checked before any
	// store or adapter access. Terminal client error.
	KindForbidden

	// KindNotFound - named entity, policy, or policy version does not exist
	// for the requested operation. Terminal client error.
	KindNotFound

	// KindNameExists - natural-key collision on create or rename, reported
	// by the store's conditional write. Terminal client error.
	KindNameExists

	// KindInvalidSyntax - policy definition failed engine validation.
	// Carries the language and the engine-reported detail.
	KindInvalidSyntax

	// KindAssignment - a relationship mutation failed at the store layer.
	// Distinguishes "the edge operation failed" from "an endpoint lookup
	// failed". Wraps the underlying cause.
	KindAssignment

	// KindCleanupFailed - the primary delete succeeded but the cascade
	// removal of dependent assignments failed. The primary entity is gone;
	// orphaned edges may remain. Requires operator attention.
	KindCleanupFailed

	// KindAdapter - opaque infrastructure fault from the identity provider
	// or the policy engine. Potentially retryable.
	KindAdapter
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindNameExists:
		return "NAME_EXISTS"
	case KindInvalidSyntax:
		return "INVALID_SYNTAX"
	case KindAssignment:
		return "ASSIGNMENT_FAILED"
	case KindCleanupFailed:
		return "CLEANUP_FAILED"
	case KindAdapter:
		return "ADAPTER_FAULT"
	default:
		return "UNKNOWN"
	}
}

// Error is the single error type produced by the service layer.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the failing operation, e.g. "role.delete".
	Op string

	// Entity is the entity type involved: role, permission, group, user, policy.
	Entity string

	// Name is the natural key or identifier involved, if any.
	Name string

	// Language is set for InvalidSyntax errors.
	Language string

	// Detail carries human-readable context such as engine-reported syntax
	// detail. Safe to return to clients for client-error kinds.
	Detail string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.Name != "" {
		msg += " " + fmt.Sprintf("%q", e.Name)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClientError reports whether the kind is a terminal, non-retryable client
// error (4xx-equivalent) as opposed to an infrastructure fault.
func (e *Error) ClientError() bool {
	switch e.Kind {
	case KindForbidden, KindNotFound, KindNameExists, KindInvalidSyntax:
		return true
	default:
		return false
	}
}

// Forbidden builds a Forbidden error for the given operation and caller.
func Forbidden(op, principalID string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Detail: "caller " + principalID + " lacks an admin role"}
}

// NotFound builds a NotFound error for a named entity.
func NotFound(op, entity, name string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, Name: name}
}

// NameExists builds a natural-key collision error.
func NameExists(op, entity, name string) *Error {
	return &Error{Kind: KindNameExists, Op: op, Entity: entity, Name: name}
}

// InvalidSyntax builds a policy syntax validation error.
func InvalidSyntax(op, language, detail string, err error) *Error {
	return &Error{Kind: KindInvalidSyntax, Op: op, Entity: "policy", Language: language, Detail: detail, Err: err}
}

// AssignmentFailed wraps a store failure during a relationship mutation.
func AssignmentFailed(op, detail string, err error) *Error {
	return &Error{Kind: KindAssignment, Op: op, Detail: detail, Err: err}
}

// CleanupFailed wraps a cascade-cleanup failure that followed a successful
// primary delete. The wrapped cause is the cleanup failure; the entity named
// is the one that was deleted.
func CleanupFailed(op, entity, name string, err error) *Error {
	return &Error{
		Kind: KindCleanupFailed, Op: op, Entity: entity, Name: name,
		Detail: "entity deleted but assignment cleanup failed; edges may be orphaned",
		Err:    err,
	}
}

// Adapter wraps an infrastructure fault from an external collaborator.
func Adapter(op string, err error) *Error {
	return &Error{Kind: KindAdapter, Op: op, Err: err}
}

// KindOf extracts the Kind from any error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsForbidden reports whether err carries KindForbidden.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsNameExists reports whether err carries KindNameExists.
func IsNameExists(err error) bool { return KindOf(err) == KindNameExists }

// IsInvalidSyntax reports whether err carries KindInvalidSyntax.
func IsInvalidSyntax(err error) bool { return KindOf(err) == KindInvalidSyntax }

// IsAssignment reports whether err carries KindAssignment.
func IsAssignment(err error) bool { return KindOf(err) == KindAssignment }

// IsCleanupFailed reports whether err carries KindCleanupFailed.
func IsCleanupFailed(err error) bool { return KindOf(err) == KindCleanupFailed }

// IsAdapter reports whether err carries KindAdapter.
func IsAdapter(err error) bool { return KindOf(err) == KindAdapter }

// Wrap classifies err into the taxonomy if it is not already classified.
// Already-classified errors pass through unchanged so callers can branch on
// the original kind; anything else becomes an Adapter fault for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return Adapter(op, err)
}
