// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package models defines the domain entities shared by the admin services,
// stores, adapters, and the HTTP layer.
package models

// Principal is the opaque caller identity passed into every service method.
// The core never authenticates a principal; it only authorizes based on the
// role set.
type Principal struct {
	// ID uniquely identifies the caller within the tenant.
	ID string `json:"id"`

	// TenantID is the isolation boundary all natural keys are scoped to.
	TenantID string `json:"tenant_id"`

	// Roles is the caller's role set as asserted by the excluded
	// authentication layer.
	Roles []string `json:"roles"`
}

// HasAnyRole reports whether the principal holds at least one of the given
// roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
