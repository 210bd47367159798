package model

import "time"

// RefreshToken is one row per active session. The Token column stores the
// refresh token's jti, not the signed string, so lookups bind the presented
// claims to persisted state.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevokedToken is an append-only denylist entry keyed by jti.
type RevokedToken struct {
	ID        string    `json:"id"`
	JTI       string    `json:"jti"`
	RevokedAt time.Time `json:"revoked_at"`
}

// ResetToken is a single-use opaque password recovery credential.
type ResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
