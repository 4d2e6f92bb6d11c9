// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package audit records who did what against the admin API. Every mutating
// service call and every error path emits an event carrying the caller
// identity and the operation name.
package audit

import (
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/models"
)

// Event is one audit record.
type Event struct {
	// Op is the operation name, e.g. "policy.rollback".
	Op string

	// PrincipalID and TenantID identify the caller.
	PrincipalID string
	TenantID    string

	// Entity and Name identify the object acted on, when applicable.
	Entity string
	Name   string

	// Outcome is "ok", "denied", or "error".
	Outcome string

	// Detail carries extra context, e.g. the error kind.
	Detail string
}

// Logger writes audit events through zerolog with a fixed component field.
type Logger struct {
	log zerolog.Logger
}

// NewLogger creates an audit logger on top of the global log stream.
func NewLogger() *Logger {
	return &Logger{log: logging.With().Str("component", "audit").Logger()}
}

// NewLoggerWith creates an audit logger on a specific zerolog logger.
// Used by tests to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLoggerWith(l zerolog.Logger) *Logger {
	return &Logger{log: l.With().Str("component", "audit").Logger()}
}

// Record writes one audit event. Denied and error outcomes log at warn so
// they stand out in aggregated streams; successful mutations log at info.
func (a *Logger) Record(ev Event) {
	var e *zerolog.Event
	if ev.Outcome == "ok" {
		e = a.log.Info()
	} else {
		e = a.log.Warn()
	}

	e = e.Str("op", ev.Op).
		Str("principal_id", ev.PrincipalID).
		Str("tenant_id", ev.TenantID).
		Str("outcome", ev.Outcome)
	if ev.Entity != "" {
		e = e.Str("entity", ev.Entity)
	}
	if ev.Name != "" {
		e = e.Str("name", ev.Name)
	}
	if ev.Detail != "" {
		e = e.Str("detail", ev.Detail)
	}
	e.Msg("admin operation")
}

// Allowed records a successful operation by the principal.
func (a *Logger) Allowed(op string, p *models.Principal, entity, name string) {
	a.Record(Event{Op: op, PrincipalID: p.ID, TenantID: p.TenantID, Entity: entity, Name: name, Outcome: "ok"})
}

// Denied records a Forbidden rejection.
func (a *Logger) Denied(op string, p *models.Principal) {
	a.Record(Event{Op: op, PrincipalID: p.ID, TenantID: p.TenantID, Outcome: "denied"})
}

// Failed records an operation that errored after passing authorization.
func (a *Logger) Failed(op string, p *models.Principal, entity, name, detail string) {
	a.Record(Event{Op: op, PrincipalID: p.ID, TenantID: p.TenantID, Entity: entity, Name: name, Outcome: "error", Detail: detail})
}
