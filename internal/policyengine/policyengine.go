// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package policyengine validates policy definitions per language before they
// are versioned. Validation is syntax-only; evaluation happens in the
// downstream enforcement plane, not here.
package policyengine

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2/model"

	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/logging"
)

// Languages with first-class handling. Other values are accepted so new
// engine languages can be onboarded without a lockstep deploy here.
const (
	LanguageRego   = "rego"
	LanguageCedar  = "cedar"
	LanguageCasbin = "casbin"
)

// Validator checks policy definition syntax.
type Validator struct{}

// NewValidator returns a syntax validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSyntax checks the definition against the named language. Casbin
// definitions are parsed with the real model parser; rego and cedar get a
// shape check only, pending engine-side compilation support. Unknown
// languages are logged and allowed through.
func (v *Validator) ValidateSyntax(ctx context.Context, definition, language string) error {
	const op = "policyengine.validate_syntax"

	if strings.TrimSpace(definition) == "" {
		return domain.InvalidSyntax(op, language, "policy definition is empty", nil)
	}

	switch language {
	case LanguageCasbin:
		if _, err := model.NewModelFromString(definition); err != nil {
			return domain.InvalidSyntax(op, language, "casbin model parse failed", err)
		}
		return nil
	case LanguageRego, LanguageCedar:
		return nil
	default:
		logging.Warn().
			Str("policy_language", language).
			Msg("no syntax validator for policy language, accepting definition")
		return nil
	}
}
