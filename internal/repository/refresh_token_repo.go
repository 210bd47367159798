package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-auth-service/internal/model"
)

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Store persists one row per active session, keyed by the refresh token's jti.
func (r *RefreshTokenRepository) Store(ctx context.Context, jti string, userID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, jti, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Validate checks that an unexpired row exists for (jti, userID). The lookup
// is keyed by both values so a signature-valid token whose row was deleted on
// logout no longer refreshes.
func (r *RefreshTokenRepository) Validate(ctx context.Context, jti string, userID string) error {
	var id string
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM refresh_tokens
		 WHERE token = $1 AND user_id = $2 AND expires_at > now()`, jti, userID).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrInvalidRefreshToken
	}
	if err != nil {
		return fmt.Errorf("validate refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, jti string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, jti)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
