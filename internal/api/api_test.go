// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// stubRoles implements RoleAdmin through function fields so each test wires
// only the method it exercises.
type stubRoles struct {
	create  func(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error)
	get     func(ctx context.Context, p *models.Principal, name string) (*models.Role, error)
	list    func(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Role, string, error)
	update  func(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error)
	deleteF func(ctx context.Context, p *models.Principal, name string) error
}

func (s *stubRoles) Create(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error) {
	return s.create(ctx, p, name, description)
}

func (s *stubRoles) Get(ctx context.Context, p *models.Principal, name string) (*models.Role, error) {
	return s.get(ctx, p, name)
}

func (s *stubRoles) List(ctx context.Context, p *models.Principal, opts models.ListOptions) ([]models.Role, string, error) {
	return s.list(ctx, p, opts)
}

func (s *stubRoles) Update(ctx context.Context, p *models.Principal, name, description string) (*models.Role, error) {
	return s.update(ctx, p, name, description)
}

func (s *stubRoles) Delete(ctx context.Context, p *models.Principal, name string) error {
	return s.deleteF(ctx, p, name)
}

func (s *stubRoles) AssignPermission(context.Context, *models.Principal, string, string) error {
	return nil
}

func (s *stubRoles) UnassignPermission(context.Context, *models.Principal, string, string) error {
	return nil
}

func (s *stubRoles) ListPermissionsForRole(context.Context, *models.Principal, string) ([]string, error) {
	return nil, nil
}

// stubPolicies implements PolicyAdmin the same way.
type stubPolicies struct {
	PolicyAdmin

	get      func(ctx context.Context, p *models.Principal, identifier string) (*models.Policy, error)
	rollback func(ctx context.Context, p *models.Principal, id string, version int) (*models.Policy, error)
}

func (s *stubPolicies) Get(ctx context.Context, p *models.Principal, identifier string) (*models.Policy, error) {
	return s.get(ctx, p, identifier)
}

func (s *stubPolicies) Rollback(ctx context.Context, p *models.Principal, id string, version int) (*models.Policy, error) {
	return s.rollback(ctx, p, id, version)
}

func testRouter(t *testing.T, h *Handler) http.Handler {
	t.Helper()
	cfg := &config.SecurityConfig{
		JWTSecret:  testSecret,
		AdminRoles: []string{"iam-admin"},
	}
	return NewRouter(cfg, h)
}

func bearerToken(t *testing.T, subject, tenant string, roles []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":       subject,
		"tenant_id": tenant,
		"roles":     roles,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestHealthIsUnauthenticated(t *testing.T) {
	router := testRouter(t, NewHandler(nil, nil, nil, nil, nil))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	router := testRouter(t, NewHandler(nil, nil, nil, nil, nil))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/roles", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", resp.Error)
	}
}

func TestForgedTokenRejected(t *testing.T) {
	router := testRouter(t, NewHandler(nil, nil, nil, nil, nil))

	claims := jwt.MapClaims{"sub": "mallory", "tenant_id": "acme"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("wrong-secret-wrong-secret-wrong!"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/roles", forged, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPrincipalReachesService(t *testing.T) {
	var seen *models.Principal
	roles := &stubRoles{
		list: func(_ context.Context, p *models.Principal, _ models.ListOptions) ([]models.Role, string, error) {
			seen = p
			return []models.Role{{TenantID: p.TenantID, RoleName: "editor"}}, "", nil
		},
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/roles", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if seen == nil || seen.ID != "alice" || seen.TenantID != "acme" {
		t.Fatalf("principal = %+v, want alice@acme", seen)
	}
	if !seen.HasAnyRole("iam-admin") {
		t.Errorf("principal roles = %v, want iam-admin", seen.Roles)
	}
}

func TestCreateRoleValidation(t *testing.T) {
	roles := &stubRoles{
		create: func(_ context.Context, _ *models.Principal, name, _ string) (*models.Role, error) {
			t.Fatalf("service reached with invalid body (name %q)", name)
			return nil, nil
		},
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing name", `{"description":"x"}`},
		{"bad name characters", `{"role_name":"bad name!"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/roles", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"forbidden", domain.Forbidden("role.get", "bob"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", domain.NotFound("role.get", "role", "ghost"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", domain.NameExists("role.create", "role", "editor"), http.StatusConflict, "NAME_EXISTS"},
		{"adapter fault", domain.Adapter("idp.getGroup", context.DeadlineExceeded), http.StatusBadGateway, "ADAPTER_FAULT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles := &stubRoles{
				get: func(context.Context, *models.Principal, string) (*models.Role, error) {
					return nil, tt.err
				},
			}
			router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
			token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

			rec := doRequest(t, router, http.MethodGet, "/api/v1/roles/editor", token, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestGetRoleNilMeansNotFound(t *testing.T) {
	roles := &stubRoles{
		get: func(context.Context, *models.Principal, string) (*models.Role, error) {
			return nil, nil
		},
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/roles/ghost", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListRolesPassesPagination(t *testing.T) {
	var gotOpts models.ListOptions
	roles := &stubRoles{
		list: func(_ context.Context, _ *models.Principal, opts models.ListOptions) ([]models.Role, string, error) {
			gotOpts = opts
			return []models.Role{{RoleName: "a"}, {RoleName: "b"}}, "bmV4dA==", nil
		},
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/roles?limit=2&cursor=YQ==", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotOpts.Limit != 2 || gotOpts.Cursor != "YQ==" {
		t.Errorf("opts = %+v, want limit 2 cursor YQ==", gotOpts)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Metadata.NextCursor != "bmV4dA==" {
		t.Errorf("next_cursor = %q, want bmV4dA==", resp.Metadata.NextCursor)
	}
}

func TestListRolesRejectsBadParams(t *testing.T) {
	router := testRouter(t, NewHandler(&stubRoles{}, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	for _, query := range []string{"?limit=abc", "?limit=5000", "?cursor=!!not-base64!!"} {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/roles"+query, token, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestInvalidPathParamRejected(t *testing.T) {
	roles := &stubRoles{
		get: func(context.Context, *models.Principal, string) (*models.Role, error) {
			t.Error("service reached with an invalid path parameter")
			return nil, nil
		},
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	for _, path := range []string{
		"/api/v1/roles/bad%2Fname",
		"/api/v1/roles/.hidden",
		"/api/v1/roles/sp%20ace",
	} {
		rec := doRequest(t, router, http.MethodGet, path, token, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestDeleteRoleNoContent(t *testing.T) {
	roles := &stubRoles{
		deleteF: func(context.Context, *models.Principal, string) error { return nil },
	}
	router := testRouter(t, NewHandler(roles, nil, nil, nil, nil))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/roles/editor", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestRollbackResolvesNameToID(t *testing.T) {
	var rolledBackID string
	var rolledBackVersion int
	policies := &stubPolicies{
		get: func(_ context.Context, _ *models.Principal, identifier string) (*models.Policy, error) {
			if identifier != "storage-read" {
				t.Fatalf("resolve identifier = %q", identifier)
			}
			return &models.Policy{ID: "8400a1c2-0000-0000-0000-000000000000", PolicyName: identifier, Version: 3}, nil
		},
		rollback: func(_ context.Context, _ *models.Principal, id string, version int) (*models.Policy, error) {
			rolledBackID = id
			rolledBackVersion = version
			return &models.Policy{ID: id, Version: 4, IsCurrent: true}, nil
		},
	}
	router := testRouter(t, NewHandler(nil, nil, nil, nil, policies))
	token := bearerToken(t, "alice", "acme", []string{"iam-admin"})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/policies/storage-read/rollback", token, `{"version":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if rolledBackID != "8400a1c2-0000-0000-0000-000000000000" || rolledBackVersion != 1 {
		t.Errorf("rollback(%q, %d), want resolved id and version 1", rolledBackID, rolledBackVersion)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := testRouter(t, NewHandler(nil, nil, nil, nil, nil))

	rec := doRequest(t, router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
