// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import "net/http"

type createGroupRequest struct {
	GroupName   string `json:"group_name" validate:"required,entityname"`
	Description string `json:"description" validate:"max=2048"`
	Precedence  int    `json:"precedence" validate:"min=0"`
}

type updateGroupRequest struct {
	Description *string `json:"description" validate:"omitempty,max=2048"`
	Precedence  *int    `json:"precedence" validate:"omitempty,min=0"`
}

type assignRoleRequest struct {
	RoleName string `json:"role_name" validate:"required,entityname"`
}

type groupMemberRequest struct {
	Username string `json:"username" validate:"required,entityname"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	group, err := h.groups.Create(r.Context(), principalFrom(r), req.GroupName, req.Description, req.Precedence)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusCreated, group)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	group, err := h.groups.Get(r.Context(), principalFrom(r), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if group == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, "group "+name+" not found", nil)
		return
	}
	respondData(w, http.StatusOK, group)
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	groups, cursor, err := h.groups.List(r.Context(), principalFrom(r), opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, groups, cursor)
}

func (h *Handler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req updateGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	group, err := h.groups.Update(r.Context(), principalFrom(r), name, req.Description, req.Precedence)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, group)
}

func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	if err := h.groups.Delete(r.Context(), principalFrom(r), name); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReactivateGroup(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	group, err := h.groups.Reactivate(r.Context(), principalFrom(r), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, group)
}

func (h *Handler) handleAssignRoleToGroup(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req assignRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.groups.AssignRole(r.Context(), principalFrom(r), groupName, req.RoleName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignRoleFromGroup(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	roleName, ok := pathParam(w, r, "role")
	if !ok {
		return
	}

	if err := h.groups.UnassignRole(r.Context(), principalFrom(r), groupName, roleName); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRolesForGroup(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	names, err := h.groups.ListRolesForGroup(r.Context(), principalFrom(r), groupName)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, names)
}

func (h *Handler) handleListGroupUsers(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	opts, ok := parseListParams(w, r)
	if !ok {
		return
	}

	users, cursor, err := h.groups.ListUsers(r.Context(), principalFrom(r), groupName, opts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondList(w, users, cursor)
}

func (h *Handler) handleAddUserToGroup(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	var req groupMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.groups.AddUser(r.Context(), principalFrom(r), groupName, req.Username); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveUserFromGroup(w http.ResponseWriter, r *http.Request) {
	groupName, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	if err := h.groups.RemoveUser(r.Context(), principalFrom(r), groupName, username); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
