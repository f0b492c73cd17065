package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rentiva/car-rental-backend/internal/auth"
	"github.com/rentiva/car-rental-backend/internal/config"
	"github.com/rentiva/car-rental-backend/internal/handler"
	"github.com/rentiva/car-rental-backend/internal/middleware"
	"github.com/rentiva/car-rental-backend/internal/model"
	"github.com/rentiva/car-rental-backend/internal/repository"
	"github.com/rentiva/car-rental-backend/internal/router"
)

// ----- in-memory stores backing the full HTTP stack -----

type stubUsers struct {
	mu   sync.Mutex
	seq  uint64
	rows map[uint64]model.User
}

func (s *stubUsers) Create(_ context.Context, u model.User) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Username == u.Username || row.Email == u.Email {
			return 0, repository.ErrDuplicateUser
		}
	}
	s.seq++
	u.ID = s.seq
	u.IsActive = true
	u.CreatedAt = time.Now().UTC()
	s.rows[u.ID] = u
	return u.ID, nil
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Username == username {
			return row, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.rows[id] = u
	return nil
}

func (s *stubUsers) UpdateProfile(_ context.Context, id uint64, firstName, lastName, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FirstName, u.LastName, u.Phone = firstName, lastName, phone
	s.rows[id] = u
	return nil
}

func (s *stubUsers) UpdateRole(_ context.Context, id uint64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	s.rows[id] = u
	return nil
}

type stubTokens struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func (s *stubTokens) Store(_ context.Context, userID uint64, tokenHash string, exp time.Time, chainLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ChainLen: chainLen, ExpiresAt: exp}
	return nil
}

func (s *stubTokens) Find(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[tokenHash]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *stubTokens) Claim(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[tokenHash]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	s.rows[tokenHash] = t
	return nil
}

func (s *stubTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.rows[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
		s.rows[tokenHash] = t
	}
	return nil
}

func (s *stubTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for h, t := range s.rows {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.rows[h] = t
		}
	}
	return nil
}

// newTestServer wires the real handlers, router and JWT middleware over
// in-memory stores.  The rate limiter is disabled so tests exercise routing,
// not throttling.  The user store is returned so tests can seed accounts
// (e.g. an admin) that registration cannot create.
func newTestServer() (*echo.Echo, *stubUsers) {
	users := &stubUsers{rows: map[uint64]model.User{}}
	tokens := &stubTokens{rows: map[string]model.RefreshToken{}}
	issuer := auth.NewTokenIssuer("handler-test-secret", 15, 7)
	revoker := auth.NewMemoryRevoker()
	log := zerolog.Nop()

	svc := auth.NewService(users, tokens, auth.NewPasswordHasher(bcrypt.MinCost),
		issuer, revoker, nil, log, 30)

	a := handler.NewAuthHandler(svc, log)
	u := handler.NewUserHandler(a, nil)

	authMW := middleware.JWTAuth(issuer, revoker)
	limitMW := middleware.NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)

	e := echo.New()
	router.RegisterAuth(e, a, u, authMW, limitMW)
	return e, users
}

// seedAdmin plants an active admin account directly in the store, the way
// out-of-band provisioning would, and returns its username.
func seedAdmin(t *testing.T, users *stubUsers) string {
	t.Helper()
	hash, err := auth.NewPasswordHasher(bcrypt.MinCost).Hash("Secret123!")
	require.NoError(t, err)
	users.mu.Lock()
	defer users.mu.Unlock()
	users.seq++
	users.rows[users.seq] = model.User{
		ID: users.seq, Username: "root-admin", Email: "admin@x.com",
		PasswordHash: hash, Role: model.RoleAdmin, IsActive: true,
		CreatedAt: time.Now().UTC(),
	}
	return "root-admin"
}

func doJSON(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeAuthResp(t *testing.T, rec *httptest.ResponseRecorder) handler.AuthResp {
	t.Helper()
	var resp handler.AuthResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

const registerBody = `{"username":"alice","email":"a@x.com","password":"Secret123!","password_confirm":"Secret123!"}`

// ----- tests -----

func TestRegisterEndpoint(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeAuthResp(t, rec)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.Access.Token)
	assert.NotEmpty(t, resp.Refresh.Token)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	// Same username again conflicts.
	rec = doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterEndpointValidation(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodPost, "/v1/auth/register",
		`{"username":"x","email":"bad","password":"short","password_confirm":"other"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "username")
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password")
}

func TestLoginEndpoint(t *testing.T) {
	e, _ := newTestServer()
	doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, "")

	rec := doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"Secret123!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeAuthResp(t, rec)
	assert.Equal(t, "Login successful", resp.Message)

	rec = doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"nobody","password":"Secret123!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointRotation(t *testing.T) {
	e, _ := newTestServer()
	first := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+first.Refresh.Token+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeAuthResp(t, rec)
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	// Replaying the rotated token is rejected.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+first.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked")

	// Empty body is a 400, not a 401.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAliasRoute(t *testing.T) {
	e, _ := newTestServer()
	first := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodPost, "/v1/token/refresh",
		`{"refresh_token":"`+first.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMeEndpoint(t *testing.T) {
	e, _ := newTestServer()
	creds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodGet, "/v1/me", "", creds.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	// No token, garbage token.
	rec = doJSON(e, http.MethodGet, "/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(e, http.MethodGet, "/v1/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMeEndpoint(t *testing.T) {
	e, _ := newTestServer()
	creds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodPut, "/v1/me",
		`{"first_name":"Alice","last_name":"Smith","phone":"+1555123456"}`, creds.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"first_name":"Alice"`)
}

func TestLogoutEndpoint(t *testing.T) {
	e, _ := newTestServer()
	creds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+creds.Refresh.Token+`"}`, creds.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The access token is deny-listed immediately.
	rec = doJSON(e, http.MethodGet, "/v1/me", "", creds.Access.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked")

	// And so is the refresh token.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+creds.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout itself requires a valid token.
	rec = doJSON(e, http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	e, _ := newTestServer()
	creds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodPost, "/v1/auth/change-password",
		`{"old_password":"wrong","new_password":"NewSecret123!"}`, creds.Access.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/auth/change-password",
		`{"old_password":"Secret123!","new_password":"weak"}`, creds.Access.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/auth/change-password",
		`{"old_password":"Secret123!","new_password":"NewSecret123!"}`, creds.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old refresh token died with the password.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+creds.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The new password works.
	rec = doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"NewSecret123!"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesForbiddenForCustomer(t *testing.T) {
	e, _ := newTestServer()
	creds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	rec := doJSON(e, http.MethodDelete, "/v1/users/1", "", creds.Access.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPut, "/v1/users/1/role", `{"role":"admin"}`, creds.Access.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterCannotSelfAssignPrivilegedRole(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodPost, "/v1/auth/register",
		`{"username":"mallory","email":"m@x.com","password":"Secret123!","password_confirm":"Secret123!","role":"admin"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role"`)
}

func TestChangeRoleEndpoint(t *testing.T) {
	e, users := newTestServer()
	seedAdmin(t, users)

	adminCreds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"root-admin","password":"Secret123!"}`, ""))
	custCreds := decodeAuthResp(t, doJSON(e, http.MethodPost, "/v1/auth/register", registerBody, ""))

	// Admin promotes the customer to staff.
	rec := doJSON(e, http.MethodPut, "/v1/users/"+itoa(custCreds.User.ID)+"/role",
		`{"role":"staff"}`, adminCreds.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"staff"`)

	// The promoted user's refresh tokens died with the old role claim.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+custCreds.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A fresh login carries the new role.
	rec = doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"Secret123!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"staff"`)

	// Unknown role and unknown user.
	rec = doJSON(e, http.MethodPut, "/v1/users/"+itoa(custCreds.User.ID)+"/role",
		`{"role":"superuser"}`, adminCreds.Access.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(e, http.MethodPut, "/v1/users/999/role",
		`{"role":"staff"}`, adminCreds.Access.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }
