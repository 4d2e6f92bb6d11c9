// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import "net/http"

type createPermissionRequest struct {
	PermissionName string `json:"permission_name" validate:"required,entityname"`
	Description    string `json:"description" validate:"max=2048"`
}

type updatePermissionRequest struct {
	Description string `json:"description" validate:"max=2048"`
}

func (h *Handler) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	perm, err := h.permissions.Create(r.Context(), principalFrom(r), req.PermissionName, req.Description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusCreated, perm)
}

func (h *Handler) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	perm, err := h.permissions.Get(r.Context(), principalFrom(r), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if perm == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "permission "+name+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, perm)
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	perms, cursor, err := h.permissions.List(r.Context(), principalFrom(r), opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, perms, cursor)
}

func (h *Handler) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req updatePermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	perm, err := h.permissions.Update(r.Context(), principalFrom(r), name, req.Description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if perm == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "permission "+name+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, perm)
}

func (h *Handler) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	if err := h.permissions.Delete(r.Context(), principalFrom(r), name); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRolesForPermission(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	names, err := h.permissions.ListRolesForPermission(r.Context(), principalFrom(r), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}
