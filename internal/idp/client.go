// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package idp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// Client is the plain REST client for the directory service. It rate-limits
// outbound calls; resilience beyond that lives in BreakerClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a directory client from configuration.
func NewClient(cfg *config.IdPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// wireGroup is the provider's group representation. The description field
// carries the encoded status payload.
type wireGroup struct {
	GroupName        string    `json:"group_name"`
	Description      string    `json:"description,omitempty"`
	Precedence       int       `json:"precedence,omitempty"`
	CreationDate     time.Time `json:"creation_date,omitempty"`
	LastModifiedDate time.Time `json:"last_modified_date,omitempty"`
}

func (w *wireGroup) toModel() *models.Group {
	description, status := models.DecodeGroupDescription(w.Description)
	return &models.Group{
		GroupName:        w.GroupName,
		Description:      description,
		Status:           status,
		Precedence:       w.Precedence,
		CreationDate:     w.CreationDate,
		LastModifiedDate: w.LastModifiedDate,
	}
}

type wireGroupPage struct {
	Groups     []wireGroup `json:"groups"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type wireUserPage struct {
	Users      []models.User `json:"users"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// do performs one provider call: rate-limit wait, request, status mapping,
// optional response decode. entity and name feed the NotFound/NameExists
// mapping for the operation.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any, entity, name string) error {
	const op = "idp." // metric label is the bare operation; error Op is prefixed
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.RecordIdPRequest(operation, outcome, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "rate_limited"
		return domain.Adapter(op+operation, fmt.Errorf("rate limiter: %w", err))
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			outcome = "error"
			return domain.Adapter(op+operation, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		outcome = "error"
		return domain.Adapter(op+operation, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "error"
		return domain.Adapter(op+operation, fmt.Errorf("directory request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome = "not_found"
		return domain.NotFound(op+operation, entity, name)
	case resp.StatusCode == http.StatusConflict:
		outcome = "conflict"
		return domain.NameExists(op+operation, entity, name)
	case resp.StatusCode >= 400:
		outcome = "error"
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logging.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Msg("directory service error response")
		return domain.Adapter(op+operation,
			fmt.Errorf("directory returned %d: %s", resp.StatusCode, string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			outcome = "error"
			return domain.Adapter(op+operation, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func groupsPath(tenantID string) string {
	return "/v1/pools/" + url.PathEscape(tenantID) + "/groups"
}

func groupPath(tenantID, name string) string {
	return groupsPath(tenantID) + "/" + url.PathEscape(name)
}

func usersPath(tenantID string) string {
	return "/v1/pools/" + url.PathEscape(tenantID) + "/users"
}

func userPath(tenantID, username string) string {
	return usersPath(tenantID) + "/" + url.PathEscape(username)
}

func pageQuery(opts models.ListOptions) url.Values {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	return q
}

// CreateGroup creates a group in the tenant's pool. The status is embedded
// into the provider's description field.
func (c *Client) CreateGroup(ctx context.Context, tenantID string, group *models.Group) (*models.Group, error) {
	status := group.Status
	if status == "" {
		status = models.GroupStatusActive
	}
	encoded, err := models.EncodeGroupDescription(group.Description, status)
	if err != nil {
		return nil, domain.Adapter("idp.create_group", fmt.Errorf("encode description: %w", err))
	}

	req := wireGroup{
		GroupName:   group.GroupName,
		Description: encoded,
		Precedence:  group.Precedence,
	}
	var resp wireGroup
	if err := c.do(ctx, "create_group", http.MethodPost, groupsPath(tenantID), nil, &req, &resp, "group", group.GroupName); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// GetGroup fetches one group. Absence surfaces as a NotFound domain error.
func (c *Client) GetGroup(ctx context.Context, tenantID, name string) (*models.Group, error) {
	var resp wireGroup
	if err := c.do(ctx, "get_group", http.MethodGet, groupPath(tenantID, name), nil, nil, &resp, "group", name); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// ListGroups returns one page of the tenant's groups.
func (c *Client) ListGroups(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Group, string, error) {
	var resp wireGroupPage
	if err := c.do(ctx, "list_groups", http.MethodGet, groupsPath(tenantID), pageQuery(opts), nil, &resp, "group", ""); err != nil {
		return nil, "", err
	}
	groups := make([]models.Group, 0, len(resp.Groups))
	for i := range resp.Groups {
		groups = append(groups, *resp.Groups[i].toModel())
	}
	return groups, resp.NextCursor, nil
}

// UpdateGroup applies a partial update. Unset fields keep their current
// value; the merged description/status pair is re-encoded before the write.
func (c *Client) UpdateGroup(ctx context.Context, tenantID, name string, update models.GroupUpdate) (*models.Group, error) {
	current, err := c.GetGroup(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}

	description := current.Description
	if update.Description != nil {
		description = *update.Description
	}
	status := current.Status
	if update.Status != nil {
		status = *update.Status
	}
	precedence := current.Precedence
	if update.Precedence != nil {
		precedence = *update.Precedence
	}

	encoded, err := models.EncodeGroupDescription(description, status)
	if err != nil {
		return nil, domain.Adapter("idp.update_group", fmt.Errorf("encode description: %w", err))
	}

	req := wireGroup{
		GroupName:   name,
		Description: encoded,
		Precedence:  precedence,
	}
	var resp wireGroup
	if err := c.do(ctx, "update_group", http.MethodPut, groupPath(tenantID, name), nil, &req, &resp, "group", name); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// ListUsersInGroup returns one page of the group's members.
func (c *Client) ListUsersInGroup(ctx context.Context, tenantID, name string, opts models.ListOptions) ([]models.User, string, error) {
	var resp wireUserPage
	if err := c.do(ctx, "list_group_users", http.MethodGet, groupPath(tenantID, name)+"/users", pageQuery(opts), nil, &resp, "group", name); err != nil {
		return nil, "", err
	}
	return resp.Users, resp.NextCursor, nil
}

// AddUserToGroup records a group membership on the provider side.
func (c *Client) AddUserToGroup(ctx context.Context, tenantID, name, username string) error {
	return c.do(ctx, "add_group_user", http.MethodPost,
		groupPath(tenantID, name)+"/users/"+url.PathEscape(username), nil, nil, nil, "group", name)
}

// RemoveUserFromGroup removes a group membership on the provider side.
func (c *Client) RemoveUserFromGroup(ctx context.Context, tenantID, name, username string) error {
	return c.do(ctx, "remove_group_user", http.MethodDelete,
		groupPath(tenantID, name)+"/users/"+url.PathEscape(username), nil, nil, nil, "group", name)
}

// GetUser fetches one user. Absence surfaces as a NotFound domain error.
func (c *Client) GetUser(ctx context.Context, tenantID, username string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "get_user", http.MethodGet, userPath(tenantID, username), nil, nil, &user, "user", username); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of the tenant's users.
func (c *Client) ListUsers(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.User, string, error) {
	var resp wireUserPage
	if err := c.do(ctx, "list_users", http.MethodGet, usersPath(tenantID), pageQuery(opts), nil, &resp, "user", ""); err != nil {
		return nil, "", err
	}
	return resp.Users, resp.NextCursor, nil
}

// ListGroupsForUser lists the groups the user belongs to.
func (c *Client) ListGroupsForUser(ctx context.Context, tenantID, username string) ([]models.Group, error) {
	var resp wireGroupPage
	if err := c.do(ctx, "list_user_groups", http.MethodGet, userPath(tenantID, username)+"/groups", nil, nil, &resp, "user", username); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(resp.Groups))
	for i := range resp.Groups {
		groups = append(groups, *resp.Groups[i].toModel())
	}
	return groups, nil
}

// SetUserEnabled enables or disables the user's sign-in.
func (c *Client) SetUserEnabled(ctx context.Context, tenantID, username string, enabled bool) error {
	action := "/disable"
	operation := "disable_user"
	if enabled {
		action = "/enable"
		operation = "enable_user"
	}
	return c.do(ctx, operation, http.MethodPost, userPath(tenantID, username)+action, nil, nil, nil, "user", username)
}

// DeleteUser removes the user record from the provider.
func (c *Client) DeleteUser(ctx context.Context, tenantID, username string) error {
	return c.do(ctx, "delete_user", http.MethodDelete, userPath(tenantID, username), nil, nil, nil, "user", username)
}

var _ Adapter = (*Client)(nil)
