// Package service holds the session lifecycle manager. It orchestrates the
// credential store, token issuer and notification sink; every dependency is
// injected explicitly at startup.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/mailer"
	"go-auth-service/internal/model"
	"go-auth-service/internal/token"
)

const bcryptCost = 12

type UserStore interface {
	Create(ctx context.Context, u model.User) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
}

type RefreshTokenStore interface {
	Store(ctx context.Context, jti string, userID string, expiresAt time.Time) error
	Validate(ctx context.Context, jti string, userID string) error
}

// SessionRevoker commits the two-part logout (denylist insert plus refresh
// row delete) atomically.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, jti string) error
}

type ResetTokenStore interface {
	Store(ctx context.Context, userID string, tokenValue string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenValue string, passwordHash string) error
}

type AuthService struct {
	users         UserStore
	refreshTokens RefreshTokenStore
	revoker       SessionRevoker
	resetTokens   ResetTokenStore
	issuer        *token.Issuer
	mail          mailer.Mailer
	resetTTL      time.Duration
	resetBaseURL  string
}

func NewAuthService(
	users UserStore,
	refreshTokens RefreshTokenStore,
	revoker SessionRevoker,
	resetTokens ResetTokenStore,
	issuer *token.Issuer,
	mail mailer.Mailer,
	resetTTL time.Duration,
	resetBaseURL string,
) *AuthService {
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		revoker:       revoker,
		resetTokens:   resetTokens,
		issuer:        issuer,
		mail:          mail,
		resetTTL:      resetTTL,
		resetBaseURL:  strings.TrimRight(resetBaseURL, "/"),
	}
}

// Signup creates the user record. It issues no tokens; the caller signs in
// separately. Duplicate emails are rejected by the store's unique constraint,
// so two concurrent signups race safely.
func (s *AuthService) Signup(ctx context.Context, name string, email string, password string) (model.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || email == "" || password == "" {
		return model.PublicUser{}, model.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.PublicUser{}, err
	}

	slog.Info("user created", "user_id", user.ID)
	return user.Public(), nil
}

// Signin verifies credentials and issues an access/refresh token pair,
// persisting one refresh row per session. The response is identical for an
// unknown email and a wrong password; the distinction is logged at debug
// level only.
func (s *AuthService) Signin(ctx context.Context, email string, password string) (model.TokenPair, error) {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return model.TokenPair{}, model.ErrValidation
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			slog.Debug("signin rejected", "reason", "unknown email")
			return model.TokenPair{}, model.ErrInvalidCredentials
		}
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Debug("signin rejected", "reason", "password mismatch", "user_id", user.ID)
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	access, err := s.issuer.IssueAccess(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.refreshTokens.Store(ctx, refresh.ID, user.ID, refresh.ExpiresAt); err != nil {
		return model.TokenPair{}, err
	}

	slog.Info("signin successful", "user_id", user.ID)
	return model.TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
		User:         user.Public(),
	}, nil
}

// Refresh exchanges verified refresh claims for a new access token. The
// refresh token itself is not rotated. The store lookup is keyed by
// (jti, subject) so a row deleted on logout cannot refresh, regardless of
// signature validity.
func (s *AuthService) Refresh(ctx context.Context, claims *model.AuthClaims) (token.Issued, error) {
	if err := s.refreshTokens.Validate(ctx, claims.TokenID, claims.UserID); err != nil {
		return token.Issued{}, err
	}

	access, err := s.issuer.IssueAccess(claims.UserID)
	if err != nil {
		return token.Issued{}, err
	}

	slog.Info("access token refreshed", "user_id", claims.UserID)
	return access, nil
}

// Logout revokes the presented access token's jti and deletes the matching
// refresh row. Both effects commit atomically; a partial logout never
// persists.
func (s *AuthService) Logout(ctx context.Context, claims *model.AuthClaims) error {
	if err := s.revoker.RevokeSession(ctx, claims.TokenID); err != nil {
		slog.Error("logout failed", "user_id", claims.UserID, "error", err)
		return fmt.Errorf("%w: %v", model.ErrLogoutFailed, err)
	}

	slog.Info("logout successful", "user_id", claims.UserID, "jti", claims.TokenID)
	return nil
}

// ForgotPassword persists a single-use opaque reset token and dispatches it
// through the notification sink. The row is stored before the send, so a
// delivery failure leaves a valid token behind and the request can be
// retried.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.ErrValidation
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	resetToken, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.resetTTL)
	if err := s.resetTokens.Store(ctx, user.ID, resetToken, expiresAt); err != nil {
		return err
	}

	resetURL := s.resetBaseURL + "/" + resetToken
	if err := s.mail.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		slog.Error("reset notification failed", "user_id", user.ID, "error", err)
		return model.ErrNotificationFailed
	}

	slog.Info("password reset token issued", "user_id", user.ID)
	return nil
}

// ResetPassword consumes the token exactly once: the password rewrite and the
// row delete commit together, so a second attempt with the same value always
// fails even inside the TTL.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue string, newPassword string) error {
	tokenValue = strings.TrimSpace(tokenValue)
	if newPassword == "" {
		return model.ErrValidation
	}
	if tokenValue == "" {
		return model.ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.resetTokens.Consume(ctx, tokenValue, string(hash)); err != nil {
		return err
	}

	slog.Info("password reset successful")
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// newResetToken returns a cryptographically random opaque value. It is a
// bearer credential on its own, never a signed JWT.
func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
