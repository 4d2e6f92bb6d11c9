// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import "net/http"

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), principalFrom(r), username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "user "+username+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	users, cursor, err := h.users.List(r.Context(), principalFrom(r), opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, users, cursor)
}

func (h *Handler) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	if err := h.users.Disable(r.Context(), principalFrom(r), username); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEnableUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	if err := h.users.Enable(r.Context(), principalFrom(r), username); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), principalFrom(r), username); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignRoleToUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	var req assignRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.users.AssignRole(r.Context(), principalFrom(r), username, req.RoleName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignRoleFromUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}
	roleName, ok := pathParam(w, r, "role")
	if !ok {
		return
	}

	if err := h.users.UnassignRole(r.Context(), principalFrom(r), username, roleName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignPermissionToUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	var req assignPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.users.AssignPermission(r.Context(), principalFrom(r), username, req.PermissionName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignPermissionFromUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}
	permissionName, ok := pathParam(w, r, "permission")
	if !ok {
		return
	}

	if err := h.users.UnassignPermission(r.Context(), principalFrom(r), username, permissionName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRolesForUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	names, err := h.users.ListRolesForUser(r.Context(), principalFrom(r), username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}

func (h *Handler) handleListPermissionsForUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	names, err := h.users.ListPermissionsForUser(r.Context(), principalFrom(r), username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}

func (h *Handler) handleListGroupsForUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	groups, err := h.users.ListGroupsForUser(r.Context(), principalFrom(r), username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, groups)
}
