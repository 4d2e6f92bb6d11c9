// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package models

import "time"

// Role is an RBAC role record. RoleName is unique within a tenant.
type Role struct {
	TenantID    string    `json:"tenant_id"`
	RoleName    string    `json:"role_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is an RBAC permission record. PermissionName is unique within a
// tenant.
type Permission struct {
	TenantID       string    `json:"tenant_id"`
	PermissionName string    `json:"permission_name"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Policy is one stored version of an authorization policy. The ID is stable
// across versions; PolicyName is unique per tenant. For a given (TenantID,
// ID) exactly one record has IsCurrent set, and version numbers form a
// contiguous increasing sequence starting at 1.
type Policy struct {
	TenantID    string            `json:"tenant_id"`
	ID          string            `json:"id"`
	PolicyName  string            `json:"policy_name"`
	Definition  string            `json:"policy_definition"`
	Language    string            `json:"policy_language"`
	Description string            `json:"description,omitempty"`
	Version     int               `json:"version"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	IsCurrent   bool              `json:"is_current"`
}

// ListOptions carries pagination parameters for list operations. Cursor is
// an opaque continuation token returned by a previous page.
type ListOptions struct {
	Limit  int
	Cursor string
}

// PolicyUpdate carries the partial fields of a policy update. Nil fields are
// left unchanged; a new version record is written for every update.
type PolicyUpdate struct {
	PolicyName  *string
	Definition  *string
	Language    *string
	Description *string
	Metadata    map[string]string
}
