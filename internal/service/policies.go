// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/audit"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/store"
)

// PolicyService administers versioned authorization policies. Every write
// appends a new version; history is immutable and version numbers are never
// reused, including across rollbacks.
type PolicyService struct {
	policies  PolicyRepository
	validator SyntaxValidator
	authz     *Authorizer
	audit     *audit.Logger
}

// NewPolicyService wires a policy service.
func NewPolicyService(policies PolicyRepository, validator SyntaxValidator, authz *Authorizer, auditLog *audit.Logger) *PolicyService {
	return &PolicyService{
		policies:  policies,
		validator: validator,
		authz:     authz,
		audit:     auditLog,
	}
}

// Create validates the definition and persists version 1 as current.
// NameExists if the policy name is taken; InvalidSyntax if the definition
// fails the language's validator.
func (s *PolicyService) Create(ctx context.Context, p *models.Principal, name, definition, language, description string, metadata map[string]string) (*models.Policy, error) {
	const op = "policy.create"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	if err := s.validator.ValidateSyntax(ctx, definition, language); err != nil {
		metrics.RecordAdminOperation(op, "error")
		return nil, fail(s.audit, p, err)
	}

	policy := &models.Policy{
		TenantID:    p.TenantID,
		ID:          uuid.NewString(),
		PolicyName:  name,
		Definition:  definition,
		Language:    language,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		metrics.RecordAdminOperation(op, "error")
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fail(s.audit, p, domain.NameExists(op, "policy", name))
		}
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}

	metrics.RecordAdminOperation(op, "success")
	metrics.RecordPolicyVersion("create")
	s.audit.Allowed(op, p, "policy", name)
	return policy, nil
}

// resolve maps an identifier to the current policy version. A uuid-shaped
// identifier is tried as an id first and falls back to a name lookup; other
// identifiers are names. Returns nil when nothing matches.
func (s *PolicyService) resolve(ctx context.Context, tenantID, identifier string) (*models.Policy, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		policy, err := s.policies.FindByID(ctx, tenantID, identifier)
		if err != nil {
			return nil, err
		}
		if policy != nil {
			return policy, nil
		}
	}
	return s.policies.FindByName(ctx, tenantID, identifier)
}

// Get returns the current version of the policy identified by id or name,
// or nil if neither resolves.
func (s *PolicyService) Get(ctx context.Context, p *models.Principal, identifier string) (*models.Policy, error) {
	const op = "policy.get"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	policy, err := s.resolve(ctx, p.TenantID, identifier)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	return policy, nil
}

// List returns one page of the tenant's current policy versions.
func (s *PolicyService) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Policy, string, error) {
	const op = "policy.list"
	if err := s.authz.require(op, p); err != nil {
		return nil, "", err
	}

	policies, cursor, err := s.policies.List(ctx, p.TenantID, opts)
	if err != nil {
		return nil, "", fail(s.audit, p, domain.Wrap(op, err))
	}
	return policies, cursor, nil
}

// Update appends a new current version with the given fields changed.
// Unset fields carry over from the current version. The definition is
// re-validated only when it changes; a rename colliding with a different
// policy yields NameExists. NotFound if the identifier does not resolve.
func (s *PolicyService) Update(ctx context.Context, p *models.Principal, identifier string, update models.PolicyUpdate) (*models.Policy, error) {
	const op = "policy.update"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	current, err := s.resolve(ctx, p.TenantID, identifier)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if current == nil {
		return nil, fail(s.audit, p, domain.NotFound(op, "policy", identifier))
	}

	next := *current
	if update.PolicyName != nil {
		next.PolicyName = *update.PolicyName
	}
	if update.Language != nil {
		next.Language = *update.Language
	}
	if update.Description != nil {
		next.Description = *update.Description
	}
	if update.Metadata != nil {
		next.Metadata = update.Metadata
	}

	definitionChanged := update.Definition != nil && *update.Definition != current.Definition
	if update.Definition != nil {
		next.Definition = *update.Definition
	}
	if definitionChanged || update.Language != nil {
		if err := s.validator.ValidateSyntax(ctx, next.Definition, next.Language); err != nil {
			metrics.RecordAdminOperation(op, "error")
			return nil, fail(s.audit, p, err)
		}
	}

	saved, err := s.policies.AppendVersion(ctx, &next)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fail(s.audit, p, domain.NameExists(op, "policy", next.PolicyName))
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(s.audit, p, domain.NotFound(op, "policy", identifier))
		}
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}

	metrics.RecordAdminOperation(op, "success")
	metrics.RecordPolicyVersion("update")
	s.audit.Allowed(op, p, "policy", saved.PolicyName)
	return saved, nil
}

// Delete removes the policy and its whole version history. NotFound if the
// identifier does not resolve.
func (s *PolicyService) Delete(ctx context.Context, p *models.Principal, identifier string) error {
	const op = "policy.delete"
	if err := s.authz.require(op, p); err != nil {
		return err
	}

	current, err := s.resolve(ctx, p.TenantID, identifier)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if current == nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.NotFound(op, "policy", identifier))
	}

	found, err := s.policies.Delete(ctx, p.TenantID, current.ID)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.Wrap(op, err))
	}
	if !found {
		metrics.RecordAdminOperation(op, "error")
		return fail(s.audit, p, domain.NotFound(op, "policy", identifier))
	}

	metrics.RecordAdminOperation(op, "success")
	s.audit.Allowed(op, p, "policy", current.PolicyName)
	return nil
}

// Rollback appends a new current version whose content is copied from the
// named historical version. The new version number is max+1; the historical
// record is untouched. NotFound if the id or version does not exist.
func (s *PolicyService) Rollback(ctx context.Context, p *models.Principal, id string, version int) (*models.Policy, error) {
	const op = "policy.rollback"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	source, err := s.policies.GetVersion(ctx, p.TenantID, id, version)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if source == nil {
		return nil, fail(s.audit, p, domain.NotFound(op, "policy", id))
	}

	current, err := s.policies.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if current == nil {
		return nil, fail(s.audit, p, domain.NotFound(op, "policy", id))
	}

	// Content comes from the historical version; the name stays whatever the
	// policy is called now, so a rollback never undoes a rename.
	next := *current
	next.Definition = source.Definition
	next.Language = source.Language
	next.Description = source.Description
	next.Metadata = source.Metadata
	saved, err := s.policies.AppendVersion(ctx, &next)
	if err != nil {
		metrics.RecordAdminOperation(op, "error")
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(s.audit, p, domain.NotFound(op, "policy", id))
		}
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fail(s.audit, p, domain.NameExists(op, "policy", next.PolicyName))
		}
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}

	metrics.RecordAdminOperation(op, "success")
	metrics.RecordPolicyVersion("rollback")
	s.audit.Allowed(op, p, "policy", saved.PolicyName)
	return saved, nil
}

// ListVersions returns the policy's full version history ascending.
// NotFound if the id has no versions.
func (s *PolicyService) ListVersions(ctx context.Context, p *models.Principal, id string) ([]models.Policy, error) {
	const op = "policy.list_versions"
	if err := s.authz.require(op, p); err != nil {
		return nil, err
	}

	versions, err := s.policies.ListVersions(ctx, p.TenantID, id)
	if err != nil {
		return nil, fail(s.audit, p, domain.Wrap(op, err))
	}
	if len(versions) == 0 {
		return nil, fail(s.audit, p, domain.NotFound(op, "policy", id))
	}
	return versions, nil
}
