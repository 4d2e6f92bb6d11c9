// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// GroupStatus is the lifecycle status of a group. The identity provider has
// no native status field, so the status is carried inside the free-text
// description as an embedded JSON payload.
type GroupStatus string

const (
	// GroupStatusActive is the default status for groups.
	GroupStatusActive GroupStatus = "ACTIVE"

	// GroupStatusInactive marks a soft-deleted group. The group record stays
	// in the identity provider so memberships are not orphaned.
	GroupStatusInactive GroupStatus = "INACTIVE"
)

// Group is a view over identity-provider group data.
type Group struct {
	GroupName        string      `json:"group_name"`
	Description      string      `json:"description,omitempty"`
	Status           GroupStatus `json:"status"`
	Precedence       int         `json:"precedence,omitempty"`
	CreationDate     time.Time   `json:"creation_date,omitempty"`
	LastModifiedDate time.Time   `json:"last_modified_date,omitempty"`
}

// GroupUpdate carries the writable fields of a group update. Nil fields are
// left unchanged.
type GroupUpdate struct {
	Description *string
	Status      *GroupStatus
	Precedence  *int
}

// User is a view over identity-provider user data.
type User struct {
	Username   string            `json:"username"`
	Email      string            `json:"email,omitempty"`
	Status     string            `json:"status,omitempty"`
	Enabled    bool              `json:"enabled"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// groupDescriptionPayload is the structured payload embedded in the identity
// provider's free-text description field.
type groupDescriptionPayload struct {
	Description string      `json:"description"`
	Status      GroupStatus `json:"status"`
}

// EncodeGroupDescription packs a plain description and a status into the
// wire form stored in the identity provider's description field.
func EncodeGroupDescription(description string, status GroupStatus) (string, error) {
	data, err := json.Marshal(groupDescriptionPayload{
		Description: description,
		Status:      status,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeGroupDescription unpacks the wire form of a group description.
// Legacy descriptions that are not a structured payload fall back to the raw
// text with status ACTIVE; decode never fails.
func DecodeGroupDescription(raw string) (string, GroupStatus) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw, GroupStatusActive
	}

	var payload groupDescriptionPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return raw, GroupStatusActive
	}
	if payload.Status != GroupStatusActive && payload.Status != GroupStatusInactive {
		payload.Status = GroupStatusActive
	}
	return payload.Description, payload.Status
}
