// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package idp talks to the external directory service that owns user and
// group records. Groups and users live in per-tenant pools on the provider
// side; Tessera never stores them locally. Provider responses are mapped to
// the domain error taxonomy at this boundary (404 -> NotFound, 409 ->
// NameExists, anything else -> Adapter).
package idp

import (
	"context"

	"github.com/tessera-io/tessera/internal/models"
)

// Adapter is the directory-service surface the admin services consume.
// Client implements it directly; BreakerClient adds circuit breaking.
type Adapter interface {
	CreateGroup(ctx context.Context, tenantID string, group *models.Group) (*models.Group, error)
	GetGroup(ctx context.Context, tenantID, name string) (*models.Group, error)
	ListGroups(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Group, string, error)
	UpdateGroup(ctx context.Context, tenantID, name string, update models.GroupUpdate) (*models.Group, error)
	ListUsersInGroup(ctx context.Context, tenantID, name string, opts models.ListOptions) ([]models.User, string, error)
	AddUserToGroup(ctx context.Context, tenantID, name, username string) error
	RemoveUserFromGroup(ctx context.Context, tenantID, name, username string) error

	GetUser(ctx context.Context, tenantID, username string) (*models.User, error)
	ListUsers(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.User, string, error)
	ListGroupsForUser(ctx context.Context, tenantID, username string) ([]models.Group, error)
	SetUserEnabled(ctx context.Context, tenantID, username string, enabled bool) error
	DeleteUser(ctx context.Context, tenantID, username string) error
}
