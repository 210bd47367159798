package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-auth-service/internal/model"
	"go-auth-service/internal/token"
)

type tokenVerifier interface {
	Verify(ctx context.Context, tokenString string, expectedType string) (*model.AuthClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(verifier tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAccess guards protected endpoints with a verified access token.
func (m *AuthMiddleware) RequireAccess(next http.Handler) http.Handler {
	return m.require(next, token.TypeAccess)
}

// RequireRefresh guards the refresh endpoint: the bearer credential must be a
// refresh token.
func (m *AuthMiddleware) RequireRefresh(next http.Handler) http.Handler {
	return m.require(next, token.TypeRefresh)
}

func (m *AuthMiddleware) require(next http.Handler, expectedType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		bearer := strings.TrimSpace(header[7:])
		claims, err := m.verifier.Verify(r.Context(), bearer, expectedType)
		if err != nil {
			status, code, message := classifyVerifyError(err)
			writeAuthError(w, status, code, message)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func classifyVerifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired"
	case errors.Is(err, model.ErrTokenRevoked):
		return http.StatusUnauthorized, "TOKEN_REVOKED", "token has been revoked"
	case errors.Is(err, model.ErrTokenMalformed):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid token"
	default:
		// Revocation lookups hit the store; its failures are not auth failures.
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error"
	}
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
