// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import "net/http"

type createRoleRequest struct {
	RoleName    string `json:"role_name" validate:"required,entityname"`
	Description string `json:"description" validate:"max=2048"`
}

type updateRoleRequest struct {
	Description string `json:"description" validate:"max=2048"`
}

type assignPermissionRequest struct {
	PermissionName string `json:"permission_name" validate:"required,entityname"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role, err := h.roles.Create(r.Context(), principalFrom(r), req.RoleName, req.Description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusCreated, role)
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	role, err := h.roles.Get(r.Context(), principalFrom(r), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if role == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "role "+name+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, role)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	roles, cursor, err := h.roles.List(r.Context(), principalFrom(r), opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, roles, cursor)
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req updateRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role, err := h.roles.Update(r.Context(), principalFrom(r), name, req.Description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if role == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "role "+name+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, role)
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	if err := h.roles.Delete(r.Context(), principalFrom(r), name); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignPermissionToRole(w http.ResponseWriter, r *http.Request) {
	roleName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req assignPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.roles.AssignPermission(r.Context(), principalFrom(r), roleName, req.PermissionName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignPermissionFromRole(w http.ResponseWriter, r *http.Request) {
	roleName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	permissionName, ok := pathParam(w, r, "permission")
	if !ok {
		return
	}

	if err := h.roles.UnassignPermission(r.Context(), principalFrom(r), roleName, permissionName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPermissionsForRole(w http.ResponseWriter, r *http.Request) {
	roleName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	names, err := h.roles.ListPermissionsForRole(r.Context(), principalFrom(r), roleName)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}

func (h *Handler) handleListGroupsForRole(w http.ResponseWriter, r *http.Request) {
	roleName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	names, err := h.groups.ListGroupsForRole(r.Context(), principalFrom(r), roleName)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}
