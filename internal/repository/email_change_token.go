// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/models"
)

// UpsertEmailChangeToken inserts the pending email-change record for a user,
// or overwrites the existing one in place: new hash, new destination email,
// new expiry, is_used reset. There is never more than one pending change per
// user.
func (r *Repository) UpsertEmailChangeToken(ctx context.Context, userID int64, tokenHash, newEmail string, expiresAt time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO email_change_tokens (user_id, token_hash, new_email, expires_at, is_used)
		 VALUES (?, ?, ?, ?, FALSE)
		 ON CONFLICT (user_id) DO UPDATE SET
			token_hash = excluded.token_hash,
			new_email = excluded.new_email,
			expires_at = excluded.expires_at,
			is_used = FALSE`,
		userID, tokenHash, newEmail, expiresAt)
	return wrapError(err)
}

// GetEmailChangeToken retrieves the pending email-change record for a user.
func (r *Repository) GetEmailChangeToken(ctx context.Context, userID int64) (*models.EmailChangeToken, error) {
	var token models.EmailChangeToken
	err := r.conn.GetContext(ctx, &token,
		`SELECT user_id, token_hash, new_email, expires_at, is_used FROM email_change_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// MarkEmailChangeTokenUsed consumes the record with the same compare-and-set
// semantics as MarkVerificationTokenUsed.
func (r *Repository) MarkEmailChangeTokenUsed(ctx context.Context, userID int64) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE email_change_tokens SET is_used = TRUE WHERE user_id = ? AND is_used = FALSE`, userID)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// DeleteEmailChangeToken deletes the record for a user.
func (r *Repository) DeleteEmailChangeToken(ctx context.Context, userID int64) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM email_change_tokens WHERE user_id = ?`, userID)
	return wrapError(err)
}

// DeleteExpiredEmailChangeTokens reclaims storage from expired records.
func (r *Repository) DeleteExpiredEmailChangeTokens(ctx context.Context, now time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM email_change_tokens WHERE expires_at < ?`, now)
	return wrapError(err)
}
