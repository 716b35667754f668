package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rbac/pkg/bootstrap"
	"github.com/tendant/simple-rbac/pkg/credential"
	"github.com/tendant/simple-rbac/pkg/metrics"
	"github.com/tendant/simple-rbac/pkg/ratelimit"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	handler  http.Handler
	services *Services
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	opts.JwtSecret = "access-secret"
	opts.RefreshSecret = "refresh-secret"
	opts.Passwords = credential.NewManager(credential.NewBcryptHasher(credential.WithCost(bcrypt.MinCost)))

	services, err := NewServices(NewInMemoryRepositories(), opts)
	require.NoError(t, err)
	_, err = bootstrap.NewSeeder(services.Permissions, services.Roles, services.Users).
		Seed(context.Background(), bootstrap.DefaultSeedData())
	require.NoError(t, err)

	cfg := services.RouterConfig(opts)
	cfg.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return &testServer{handler: New(cfg), services: services}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token, resp.RefreshToken
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	rr := s.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK","message":"Server is running","timestamp":"2024-01-02T03:04:05Z"}`, rr.Body.String())
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Email string `json:"email"`
			Roles []struct {
				Name string `json:"name"`
			} `json:"roles"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "admin@example.com", resp.User.Email)
	require.Len(t, resp.User.Roles, 1)
	assert.Equal(t, "Super Admin", resp.User.Roles[0].Name)
	assert.NotContains(t, rr.Body.String(), "password")

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"wrong password", `{"email":"admin@example.com","password":"nope"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown email", `{"email":"ghost@example.com","password":"admin123"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"missing fields", `{}`, http.StatusUnauthorized, "Email and password are required"},
		{"bad body", `{`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.message)
		})
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	s := newTestServer(t, Options{})
	adminToken, _ := s.login(t, "admin@example.com", "admin123")
	viewerToken, viewerRefresh := s.login(t, "viewer@example.com", "viewer123")

	viewer, err := s.services.Users.GetUserByEmail(context.Background(), "viewer@example.com")
	require.NoError(t, err)
	rr := s.do(t, http.MethodPatch, "/api/users/"+viewer.ID.String()+"/toggle-status", adminToken, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"viewer@example.com","password":"viewer123"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Account is deactivated")

	// outstanding tokens stop working immediately
	rr = s.do(t, http.MethodGet, "/api/auth/me", viewerToken, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+viewerRefresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid refresh token")
}

func TestRefreshAndMe(t *testing.T) {
	s := newTestServer(t, Options{})
	_, refresh := s.login(t, "manager@example.com", "manager123")

	rr := s.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	rr = s.do(t, http.MethodGet, "/api/auth/me", resp.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"manager@example.com"`)
	assert.Contains(t, rr.Body.String(), `"name":"User Manager"`)
	assert.Contains(t, rr.Body.String(), `"lastLogin"`)

	// a refresh token is not an access token
	rr = s.do(t, http.MethodGet, "/api/auth/me", refresh, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "No token, authorization denied")
}

func TestSignup(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := s.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"new@example.com","password":"pw","firstName":"New","lastName":"User"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, rr.Body.String(), `"roles":[]`)

	// no roles means no permissions
	rr = s.do(t, http.MethodGet, "/api/users/", resp.Token, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"NEW@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "User already exists")
}

func TestPermissionGates(t *testing.T) {
	s := newTestServer(t, Options{})
	admin, _ := s.login(t, "admin@example.com", "admin123")
	manager, _ := s.login(t, "manager@example.com", "manager123")
	viewer, _ := s.login(t, "viewer@example.com", "viewer123")

	target, err := s.services.Users.GetUserByEmail(context.Background(), "manager@example.com")
	require.NoError(t, err)
	userPath := "/api/users/" + target.ID.String()

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   string
		status int
	}{
		{"viewer lists users", viewer, http.MethodGet, "/api/users/", "", http.StatusOK},
		{"viewer reads a user", viewer, http.MethodGet, userPath, "", http.StatusOK},
		{"viewer cannot delete users", viewer, http.MethodDelete, userPath, "", http.StatusForbidden},
		{"viewer cannot create users", viewer, http.MethodPost, "/api/users/", `{"email":"x@example.com","password":"pw"}`, http.StatusForbidden},
		{"viewer lists roles", viewer, http.MethodGet, "/api/roles/", "", http.StatusOK},
		{"viewer cannot create roles", viewer, http.MethodPost, "/api/roles/", `{"name":"X","description":"x"}`, http.StatusForbidden},
		{"viewer lists permissions", viewer, http.MethodGet, "/api/permissions/", "", http.StatusOK},
		{"manager cannot list roles", manager, http.MethodGet, "/api/roles/", "", http.StatusForbidden},
		{"manager cannot create permissions", manager, http.MethodPost, "/api/permissions/", `{"name":"report.read","description":"Read reports","category":"Reports"}`, http.StatusForbidden},
		{"manager creates users", manager, http.MethodPost, "/api/users/", `{"email":"m@example.com","password":"pw"}`, http.StatusCreated},
		{"admin creates permissions", admin, http.MethodPost, "/api/permissions/", `{"name":"report.read","description":"Read reports","category":"Reports"}`, http.StatusCreated},
		{"admin creates roles", admin, http.MethodPost, "/api/roles/", `{"name":"Auditor","description":"Audits"}`, http.StatusCreated},
		{"no token", "", http.MethodGet, "/api/users/", "", http.StatusUnauthorized},
		{"garbage token", "abc", http.MethodGet, "/api/users/", "", http.StatusUnauthorized},
		{"admin deletes a user", admin, http.MethodDelete, userPath, "", http.StatusOK},
		{"deleted user's token is rejected", manager, http.MethodGet, "/api/users/", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestRoleChangesApplyToNextRequest(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()
	admin, _ := s.login(t, "admin@example.com", "admin123")
	viewer, _ := s.login(t, "viewer@example.com", "viewer123")

	viewerRole, err := s.services.Roles.GetRoleByName(ctx, "Viewer")
	require.NoError(t, err)

	rr := s.do(t, http.MethodPost, "/api/roles/"+viewerRole.ID.String()+"/permissions", admin, `{"permissionIds":[]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/users/", viewer, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitStore: ratelimit.NewMemoryStore(2, time.Minute)})

	for i := 0; i < 2; i++ {
		rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"admin123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// only the auth routes are limited
	rr = s.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthRateLimit_ForwardedFor(t *testing.T) {
	proxies, err := ratelimit.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	s := newTestServer(t, Options{RateLimitStore: ratelimit.NewMemoryStore(1, time.Minute), TrustedProxies: proxies})

	login := func(remote, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"nope"}`))
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// a direct client cannot pick its own key
	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.9:1", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("203.0.113.9:1", "198.51.100.2"))

	// behind the proxy each forwarded client has its own budget
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.2:1", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.2:1", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.2:1", "198.51.100.2"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{Metrics: metrics.New()})
	viewer, _ := s.login(t, "viewer@example.com", "viewer123")
	s.do(t, http.MethodDelete, "/api/users/00000000-0000-0000-0000-000000000000", viewer, "")

	rr := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `usermgr_auth_attempts_total{outcome="success"} 2`)
	assert.Contains(t, body, `usermgr_authorization_decisions_total{decision="forbidden"} 1`)
	assert.Contains(t, body, `path="/api/auth/login"`)
}
