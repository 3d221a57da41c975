// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/models"
)

// UpsertVerificationToken inserts the pending verification record for a user,
// or overwrites the existing one. The overwrite replaces the hash and expiry
// and resets is_used, so the previous plaintext becomes permanently invalid.
func (r *Repository) UpsertVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO verification_tokens (user_id, token_hash, expires_at, is_used)
		 VALUES (?, ?, ?, FALSE)
		 ON CONFLICT (user_id) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at,
			is_used = FALSE`,
		userID, tokenHash, expiresAt)
	return wrapError(err)
}

// GetVerificationToken retrieves the pending verification record for a user.
func (r *Repository) GetVerificationToken(ctx context.Context, userID int64) (*models.VerificationToken, error) {
	var token models.VerificationToken
	err := r.conn.GetContext(ctx, &token,
		`SELECT user_id, token_hash, expires_at, is_used FROM verification_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// MarkVerificationTokenUsed consumes the record. The is_used guard makes the
// write a compare-and-set: ErrNotFound means the token was already consumed
// by a concurrent request (or never existed).
func (r *Repository) MarkVerificationTokenUsed(ctx context.Context, userID int64) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE verification_tokens SET is_used = TRUE WHERE user_id = ? AND is_used = FALSE`, userID)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// DeleteVerificationToken deletes the record for a user.
func (r *Repository) DeleteVerificationToken(ctx context.Context, userID int64) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE user_id = ?`, userID)
	return wrapError(err)
}

// DeleteExpiredVerificationTokens reclaims storage from expired records.
// Expiration is otherwise checked lazily at consumption time.
func (r *Repository) DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at < ?`, now)
	return wrapError(err)
}
