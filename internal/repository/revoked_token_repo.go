package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RevokedTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRevokedTokenRepository(pool *pgxpool.Pool) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

// IsRevoked is consulted on every token verification.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// RevokeSession denylists the access token's jti and removes the matching
// refresh token row in a single transaction. Either both changes commit or
// neither does.
func (r *RevokedTokenRepository) RevokeSession(ctx context.Context, jti string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin logout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO revoked_tokens (id, jti, revoked_at) VALUES ($1, $2, $3)`,
		uuid.NewString(), jti, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`, jti); err != nil {
		return fmt.Errorf("delete refresh token on logout: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit logout tx: %w", err)
	}
	return nil
}

// PruneOlderThan deletes denylist rows revoked before the cutoff. Safe once
// the cutoff exceeds the access TTL: expiry already rejects those tokens.
func (r *RevokedTokenRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune revoked tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
