package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identd/mongoauth/pkg/api/auth"
	"github.com/identd/mongoauth/pkg/api/handlers"
	"github.com/identd/mongoauth/pkg/identity"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

// memStore is an in-memory identity.Store for API tests.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*identity.User
	groups  map[string][]string
	pingErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*identity.User),
		groups: make(map[string][]string),
	}
}

func (s *memStore) seed(u *identity.User, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	for _, g := range groups {
		s.groups[g] = append(s.groups[g], u.Username)
	}
}

func (s *memStore) FindUser(ctx context.Context, username string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrNoSuchUser, username)
	}
	copied := *u
	return &copied, nil
}

func (s *memStore) ListUserNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) FindGroupsContainingUser(ctx context.Context, username string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []string
	for name, members := range s.groups {
		for _, m := range members {
			if m == username {
				groups = append(groups, name)
				break
			}
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (s *memStore) InsertUser(ctx context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; !ok {
		copied := *user
		s.users[user.Username] = &copied
	}
	return nil
}

func (s *memStore) UpdateUser(ctx context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.Username] = &copied
	return nil
}

func (s *memStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	for g, members := range s.groups {
		kept := members[:0]
		for _, m := range members {
			if m != username {
				kept = append(kept, m)
			}
		}
		s.groups[g] = kept
	}
	return nil
}

func (s *memStore) AddUserToGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %q", identity.ErrNoSuchUser, username)
	}
	for _, m := range s.groups[group] {
		if m == username {
			return nil
		}
	}
	s.groups[group] = append(s.groups[group], username)
	return nil
}

func (s *memStore) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %q", identity.ErrNoSuchUser, username)
	}
	members := s.groups[group]
	kept := members[:0]
	for _, m := range members {
		if m != username {
			kept = append(kept, m)
		}
	}
	s.groups[group] = kept
	return nil
}

func (s *memStore) Ping(ctx context.Context) error  { return s.pingErr }
func (s *memStore) Close(ctx context.Context) error { return nil }

// testAPI bundles the router with its backing store for a test.
type testAPI struct {
	router http.Handler
	store  *memStore
	jwt    *auth.JWTService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := newMemStore()
	st.seed(&identity.User{Username: "admin", PasswordHash: "adminpass"}, "admin")
	st.seed(&identity.User{Username: "berti", PasswordHash: "fish"}, "operator")

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	authenticator := identity.NewAuthenticator(st, nil)
	engine := identity.NewEngine(st, nil)

	return &testAPI{
		router: NewRouter(authenticator, engine, st, jwtService),
		store:  st,
		jwt:    jwtService,
	}
}

func (a *testAPI) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login authenticates through the API and returns the token pair.
func (a *testAPI) login(t *testing.T, username, password string) handlers.LoginResponse {
	t.Helper()

	rec := a.request(t, http.MethodPost, "/api/v1/auth/login", "",
		handlers.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLoginSuccess(t *testing.T) {
	api := newTestAPI(t)

	resp := api.login(t, "admin", "adminpass")

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, []string{"admin"}, resp.User.Groups)
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodPost, "/api/v1/auth/login", "",
		handlers.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.request(t, http.MethodPost, "/api/v1/auth/login", "",
		handlers.LoginRequest{Username: "nobody", Password: "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMissingUsername(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodPost, "/api/v1/auth/login", "",
		handlers.LoginRequest{Password: "fish"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginMalformedBody(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
}

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	rec := api.request(t, http.MethodPost, "/api/v1/auth/refresh", "",
		handlers.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "berti", resp.User.Username)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	rec := api.request(t, http.MethodPost, "/api/v1/auth/refresh", "",
		handlers.RefreshRequest{RefreshToken: pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshDeletedUser(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	require.NoError(t, api.store.DeleteUser(context.Background(), "berti"))

	rec := api.request(t, http.MethodPost, "/api/v1/auth/refresh", "",
		handlers.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	rec := api.request(t, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.PrincipalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "berti", resp.Username)
	assert.Equal(t, []string{"operator"}, resp.Groups)
}

func TestMeReflectsRevokedRoles(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	require.NoError(t, api.store.RemoveUserFromGroup(context.Background(), "berti", "operator"))

	rec := api.request(t, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.PrincipalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Groups, "memberships are re-resolved on every call")
}

func TestMeWithoutToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeWithGarbageToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRejectsNonBearerScheme(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Basic "+pair.AccessToken)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "berti", "fish")

	rec := api.request(t, http.MethodGet, "/api/v1/users/", pair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.request(t, http.MethodGet, "/api/v1/users/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserCRUD(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "admin", "adminpass")

	// Create
	rec := api.request(t, http.MethodPost, "/api/v1/users/", pair.AccessToken,
		handlers.CreateUserRequest{Username: "fred", Password: "pass"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// List
	rec = api.request(t, http.MethodGet, "/api/v1/users/", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list handlers.UserListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, []string{"admin", "berti", "fred"}, list.Users)

	// Delete
	rec = api.request(t, http.MethodDelete, "/api/v1/users/fred", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.request(t, http.MethodGet, "/api/v1/users/", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = handlers.UserListResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.NotContains(t, list.Users, "fred")
}

func TestCreateUserMissingUsername(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "admin", "adminpass")

	rec := api.request(t, http.MethodPost, "/api/v1/users/", pair.AccessToken,
		handlers.CreateUserRequest{Password: "pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleManagement(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "admin", "adminpass")

	// Grant
	rec := api.request(t, http.MethodPost, "/api/v1/users/berti/roles/", pair.AccessToken,
		handlers.AddRoleRequest{Role: "auditor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// List
	rec = api.request(t, http.MethodGet, "/api/v1/users/berti/roles/", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles handlers.RoleListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&roles))
	assert.Equal(t, "berti", roles.Username)
	assert.ElementsMatch(t, []string{"operator", "auditor"}, roles.Roles)

	// Revoke
	rec = api.request(t, http.MethodDelete, "/api/v1/users/berti/roles/auditor", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Revoking a role the user does not hold succeeds.
	rec = api.request(t, http.MethodDelete, "/api/v1/users/berti/roles/auditor", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAddRoleUnknownUser(t *testing.T) {
	api := newTestAPI(t)
	pair := api.login(t, "admin", "adminpass")

	rec := api.request(t, http.MethodPost, "/api/v1/users/nobody/roles/", pair.AccessToken,
		handlers.AddRoleRequest{Role: "auditor"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthLiveness(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestHealthReadiness(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.store.pingErr = errors.New("backend unreachable")

	rec = api.request(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Error, "unreachable")
}

func TestNewServerRequiresSecret(t *testing.T) {
	st := newMemStore()
	authenticator := identity.NewAuthenticator(st, nil)
	engine := identity.NewEngine(st, nil)

	_, err := NewServer(APIConfig{}, authenticator, engine, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")

	cfg := APIConfig{}
	cfg.JWT.Secret = testSecret
	srv, err := NewServer(cfg, authenticator, engine, st)
	require.NoError(t, err)
	assert.Equal(t, 8080, srv.Port())
}

func TestGetJWTSecretEnvPrecedence(t *testing.T) {
	t.Setenv(EnvJWTSecret, "from-environment-variable-32-chars-xx")

	cfg := APIConfig{}
	cfg.JWT.Secret = "from-config-file-also-32-chars-long-xx"

	assert.Equal(t, "from-environment-variable-32-chars-xx", cfg.GetJWTSecret())
	assert.True(t, cfg.HasJWTSecret())
}
