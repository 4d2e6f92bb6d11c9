// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import (
	"net/http"

	"github.com/tessera-io/tessera/internal/models"
)

type createPolicyRequest struct {
	PolicyName  string            `json:"policy_name" validate:"required,entityname"`
	Definition  string            `json:"policy_definition" validate:"required"`
	Language    string            `json:"policy_language" validate:"required,policylang"`
	Description string            `json:"description" validate:"max=2048"`
	Metadata    map[string]string `json:"metadata"`
}

type updatePolicyRequest struct {
	PolicyName  *string           `json:"policy_name" validate:"omitempty,entityname"`
	Definition  *string           `json:"policy_definition" validate:"omitempty,min=1"`
	Language    *string           `json:"policy_language" validate:"omitempty,policylang"`
	Description *string           `json:"description" validate:"omitempty,max=2048"`
	Metadata    map[string]string `json:"metadata"`
}

type rollbackPolicyRequest struct {
	Version int `json:"version" validate:"required,min=1"`
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req createPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	policy, err := h.policies.Create(r.Context(), principalFrom(r),
		req.PolicyName, req.Definition, req.Language, req.Description, req.Metadata)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusCreated, policy)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier")
	if !ok {
		return
	}

	policy, err := h.policies.Get(r.Context(), principalFrom(r), identifier)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if policy == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "policy "+identifier+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, policy)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	policies, cursor, err := h.policies.List(r.Context(), principalFrom(r), opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, policies, cursor)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier")
	if !ok {
		return
	}

	var req updatePolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	policy, err := h.policies.Update(r.Context(), principalFrom(r), identifier, models.PolicyUpdate{
		PolicyName:  req.PolicyName,
		Definition:  req.Definition,
		Language:    req.Language,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, policy)
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier")
	if !ok {
		return
	}

	if err := h.policies.Delete(r.Context(), principalFrom(r), identifier); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRollbackPolicy(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier")
	if !ok {
		return
	}

	var req rollbackPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Rollback operates on the stable policy ID; resolve names first.
	current, err := h.policies.Get(r.Context(), principalFrom(r), identifier)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if current == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "policy "+identifier+" not found", nil)
		return
	}

	policy, err := h.policies.Rollback(r.Context(), principalFrom(r), current.ID, req.Version)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, policy)
}

func (h *Handler) handleListPolicyVersions(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier")
	if !ok {
		return
	}

	current, err := h.policies.Get(r.Context(), principalFrom(r), identifier)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if current == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "policy "+identifier+" not found", nil)
		return
	}

	versions, err := h.policies.ListVersions(r.Context(), principalFrom(r), current.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, versions)
}
