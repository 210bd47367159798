package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-auth-service/internal/config"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/router"
	"go-auth-service/internal/service"
	"go-auth-service/internal/token"
)

// In-memory credential store used to exercise the full HTTP surface without
// PostgreSQL. Behavior mirrors the SQL repositories, including the atomic
// logout and single-use reset consume.

type memStore struct {
	mu          sync.Mutex
	usersByID   map[string]model.User
	usersByMail map[string]model.User
	refresh     map[string]model.RefreshToken
	revoked     map[string]bool
	resets      map[string]model.ResetToken
}

func newMemStore() *memStore {
	return &memStore{
		usersByID:   map[string]model.User{},
		usersByMail: map[string]model.User{},
		refresh:     map[string]model.RefreshToken{},
		revoked:     map[string]bool{},
		resets:      map[string]model.ResetToken{},
	}
}

func (s *memStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByMail[u.Email]; exists {
		return model.ErrUserAlreadyExists
	}
	s.usersByID[u.ID] = u
	s.usersByMail[u.Email] = u
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByMail[email]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) Store(_ context.Context, jti string, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[jti] = model.RefreshToken{UserID: userID, Token: jti, ExpiresAt: expiresAt}
	return nil
}

func (s *memStore) Validate(_ context.Context, jti string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.refresh[jti]
	if !ok || row.UserID != userID || !row.ExpiresAt.After(time.Now()) {
		return model.ErrInvalidRefreshToken
	}
	return nil
}

func (s *memStore) RevokeSession(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
	delete(s.refresh, jti)
	return nil
}

func (s *memStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[jti], nil
}

func (s *memStore) StoreReset(_ context.Context, userID string, tokenValue string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[tokenValue] = model.ResetToken{UserID: userID, Token: tokenValue, ExpiresAt: expiresAt}
	return nil
}

func (s *memStore) Consume(_ context.Context, tokenValue string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.resets[tokenValue]
	if !ok || !row.ExpiresAt.After(time.Now()) {
		return model.ErrResetTokenInvalid
	}
	u := s.usersByID[row.UserID]
	u.PasswordHash = passwordHash
	s.usersByID[u.ID] = u
	s.usersByMail[u.Email] = u
	delete(s.resets, tokenValue)
	return nil
}

// resetStore adapts memStore's StoreReset to the service interface name.
type resetStore struct{ *memStore }

func (s resetStore) Store(ctx context.Context, userID string, tokenValue string, expiresAt time.Time) error {
	return s.StoreReset(ctx, userID, tokenValue, expiresAt)
}

type captureMailer struct {
	mu   sync.Mutex
	urls []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _ string, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, resetURL)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.urls)
	parts := strings.Split(m.urls[len(m.urls)-1], "/")
	return parts[len(parts)-1]
}

func newTestServer(t *testing.T) (*httptest.Server, *memStore, *captureMailer) {
	t.Helper()

	store := newMemStore()
	mail := &captureMailer{}

	issuer, err := token.NewIssuer("test-secret", time.Hour, 168*time.Hour)
	require.NoError(t, err)
	verifier := token.NewVerifier("test-secret", store)

	authService := service.NewAuthService(
		store, store, store, resetStore{store},
		issuer, mail, time.Hour, "http://localhost:8080/reset-password",
	)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "test-secret",
		JWTAccessTTL:     time.Hour,
		JWTRefreshTTL:    168 * time.Hour,
		ResetTokenTTL:    time.Hour,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	authMiddleware := middleware.NewAuthMiddleware(verifier)
	appMetrics := metrics.New()

	srv := httptest.NewServer(router.New(cfg, authMiddleware, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, appMetrics),
		User:    handler.NewUserHandler(authService),
		Metrics: appMetrics.Handler(),
	}))
	t.Cleanup(srv.Close)

	return srv, store, mail
}

func postJSON(t *testing.T, url string, payload any, bearer string) *http.Response {
	t.Helper()

	var body bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = *bytes.NewReader(raw)
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getWithBearer(t *testing.T, url string, bearer string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) model.APIResponse {
	t.Helper()

	var parsed model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed
}

func signupAndSignin(t *testing.T, srv *httptest.Server) (access string, refresh string) {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/signin", map[string]string{
		"email": "a@x.com", "password": "p1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	parsed := decodeBody(t, resp)
	data, err := json.Marshal(parsed.Data)
	require.NoError(t, err)
	var pair model.TokenPair
	require.NoError(t, json.Unmarshal(data, &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "A", pair.User.Name)

	return pair.AccessToken, pair.RefreshToken
}

func TestSignupRejectsNonJSONBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/signup", strings.NewReader("name=A"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestSignupValidationAndDuplicate(t *testing.T) {
	srv, store, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/signup", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/signup", map[string]string{
		"name": "B", "email": "a@x.com", "password": "p2",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, store.usersByID, 1)
}

func TestSigninUnknownUserAndWrongPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	signupAndSignin(t, srv)

	for _, payload := range []map[string]string{
		{"email": "nobody@x.com", "password": "p1"},
		{"email": "a@x.com", "password": "wrong"},
	} {
		resp := postJSON(t, srv.URL+"/api/signin", payload, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		parsed := decodeBody(t, resp)
		require.Equal(t, "Invalid credentials", parsed.Error.Message)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	access, _ := signupAndSignin(t, srv)

	resp := getWithBearer(t, srv.URL+"/api/dashboard", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	parsed := decodeBody(t, resp)
	require.Contains(t, parsed.Message, "Welcome A")

	resp = postJSON(t, srv.URL+"/api/logout", nil, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The revoked access token must fail all subsequent verification.
	resp = getWithBearer(t, srv.URL+"/api/dashboard", access)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	parsed = decodeBody(t, resp)
	require.Equal(t, "TOKEN_REVOKED", parsed.Error.Code)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, refresh := signupAndSignin(t, srv)

	resp := postJSON(t, srv.URL+"/api/refresh", nil, refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	parsed := decodeBody(t, resp)
	data, err := json.Marshal(parsed.Data)
	require.NoError(t, err)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.AccessToken)

	// The fresh access token works against protected endpoints.
	resp = getWithBearer(t, srv.URL+"/api/dashboard", out.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshRejectsAccessTokenAndDeletedRow(t *testing.T) {
	srv, store, _ := newTestServer(t)
	access, refresh := signupAndSignin(t, srv)

	// An access token is the wrong type for /api/refresh.
	resp := postJSON(t, srv.URL+"/api/refresh", nil, access)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Deleting the row invalidates the refresh token despite a valid signature.
	store.mu.Lock()
	for jti := range store.refresh {
		delete(store.refresh, jti)
	}
	store.mu.Unlock()

	resp = postJSON(t, srv.URL+"/api/refresh", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutDeletesRefreshRowAtomically(t *testing.T) {
	srv, store, _ := newTestServer(t)
	access, refresh := signupAndSignin(t, srv)

	// Bind the refresh row to the access token's jti so logout's delete has a
	// matching row, mirroring the shared-jti lookup the store performs.
	verifier := token.NewVerifier("test-secret", nil)
	accessClaims, err := verifier.Verify(context.Background(), access, token.TypeAccess)
	require.NoError(t, err)
	refreshClaims, err := verifier.Verify(context.Background(), refresh, token.TypeRefresh)
	require.NoError(t, err)

	store.mu.Lock()
	row := store.refresh[refreshClaims.TokenID]
	delete(store.refresh, refreshClaims.TokenID)
	row.Token = accessClaims.TokenID
	store.refresh[accessClaims.TokenID] = row
	store.mu.Unlock()

	resp := postJSON(t, srv.URL+"/api/logout", nil, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.True(t, store.revoked[accessClaims.TokenID])
	require.NotContains(t, store.refresh, accessClaims.TokenID)
}

func TestPasswordRecoveryFlow(t *testing.T) {
	srv, _, mail := newTestServer(t)
	signupAndSignin(t, srv)

	resp := postJSON(t, srv.URL+"/api/forgot-password", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resetToken := mail.lastToken(t)

	resp = postJSON(t, srv.URL+"/api/reset-password/"+resetToken, map[string]string{"password": "p2"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password no longer works; new one does.
	resp = postJSON(t, srv.URL+"/api/signin", map[string]string{"email": "a@x.com", "password": "p1"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/api/signin", map[string]string{"email": "a@x.com", "password": "p2"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The token was consumed; reuse fails.
	resp = postJSON(t, srv.URL+"/api/reset-password/"+resetToken, map[string]string{"password": "p3"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForgotPasswordUnknownEmailReturns404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/forgot-password", map[string]string{"email": "nobody@x.com"}, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/", "/health", "/api/public"} {
		resp := getWithBearer(t, srv.URL+path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp := getWithBearer(t, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDashboardRequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := getWithBearer(t, srv.URL+"/api/dashboard", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getWithBearer(t, srv.URL+"/api/dashboard", "garbage-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
