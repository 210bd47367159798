package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"go-auth-service/internal/model"
)

type stubVerifier struct {
	claims *model.AuthClaims
	err    error
	gotTyp string
}

func (s *stubVerifier) Verify(_ context.Context, _ string, expectedType string) (*model.AuthClaims, error) {
	s.gotTyp = expectedType
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.UserID))
	})
}

func TestRequireAccessMissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(&stubVerifier{})
	handler := mw.RequireAccess(protectedEcho(t))

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAccessPassesClaims(t *testing.T) {
	verifier := &stubVerifier{claims: &model.AuthClaims{UserID: "u1", Type: "access", TokenID: "j1"}}
	mw := NewAuthMiddleware(verifier)
	handler := mw.RequireAccess(protectedEcho(t))

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", rec.Body.String())
	require.Equal(t, "access", verifier.gotTyp)
}

func TestRequireRefreshExpectsRefreshType(t *testing.T) {
	verifier := &stubVerifier{claims: &model.AuthClaims{UserID: "u1", Type: "refresh", TokenID: "j1"}}
	mw := NewAuthMiddleware(verifier)
	handler := mw.RequireRefresh(protectedEcho(t))

	req := httptest.NewRequest("POST", "/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "refresh", verifier.gotTyp)
}

func TestRequireAccessErrorClassification(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"expired", model.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"revoked", model.ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"malformed", model.ErrTokenMalformed, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"store failure", context.DeadlineExceeded, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := NewAuthMiddleware(&stubVerifier{err: tc.err})
			handler := mw.RequireAccess(protectedEcho(t))

			req := httptest.NewRequest("GET", "/api/dashboard", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)

			var parsed model.APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
			require.False(t, parsed.Success)
			require.Equal(t, tc.wantCode, parsed.Error.Code)
		})
	}
}

func TestRequireJSON(t *testing.T) {
	handler := RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/signup", nil)
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest("POST", "/api/signup", nil)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
