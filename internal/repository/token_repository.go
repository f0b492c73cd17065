package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rentiva/car-rental-backend/internal/model"
)

// TokenRepo owns the 'refresh_tokens' table.  Only SHA-256 hashes of tokens
// are ever stored; chain_len records how many rotations preceded a token so
// the service can bound the rotation budget per login.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time, chainLen int) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, chain_len, expires_at) VALUES (?,?,?,?)",
		userID, tokenHash, chainLen, exp)
	return err
}

// Find returns the stored row for a token hash.  Expiry and revocation are
// judged by the caller from the row so it can distinguish expired from
// revoked from unknown.
func (r *TokenRepo) Find(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, chain_len, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ChainLen, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}

// Claim atomically takes ownership of an active token by marking it revoked.
// The revoked_at IS NULL predicate makes the UPDATE the linearization point:
// of any number of concurrent claims on the same hash exactly one affects a
// row, the rest observe ErrNotFound.  Rotation rides on this so a refresh
// token can never be double-spent.
func (r *TokenRepo) Claim(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RevokeByHash marks a token as revoked.  Revoking an already-revoked or
// unknown token is a no-op, not an error; logout uses this.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all of a user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// DeleteExpired prunes rows whose tokens expired before the cutoff.  Run
// periodically so the table does not accumulate the full token history.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
