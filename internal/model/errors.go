package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrValidation        = errors.New("missing or invalid input")

	// Credential errors. Signin failures collapse into ErrInvalidCredentials
	// regardless of whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrResetTokenInvalid   = errors.New("invalid or expired reset token")
	ErrSigningKeyMissing   = errors.New("signing key unavailable")

	// Operation errors
	ErrLogoutFailed       = errors.New("logout failed")
	ErrNotificationFailed = errors.New("failed to send notification")
)
