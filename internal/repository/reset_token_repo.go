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

type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

func (r *ResetTokenRepository) Store(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reset_tokens (id, user_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Consume atomically rewrites the owning user's password hash and deletes the
// token row. The row is locked for the duration of the transaction so two
// concurrent resets with the same token cannot both succeed.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string, passwordHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id, userID string
	err = tx.QueryRow(ctx,
		`SELECT id, user_id FROM reset_tokens
		 WHERE token = $1 AND expires_at > now()
		 FOR UPDATE`, token).Scan(&id, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash); err != nil {
		return fmt.Errorf("update password on reset: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM reset_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete consumed reset token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
