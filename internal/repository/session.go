// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/models"
)

// CreateSession stores a new bearer-token session record.
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID, session.TokenHash, session.ExpiresAt)
	return wrapError(err)
}

// GetSessionByTokenHash retrieves a session by the digest of its bearer token.
func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	err := r.conn.GetContext(ctx, &session,
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &session, nil
}

// DeleteSession removes a single session by token digest.
func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return wrapError(err)
}

// DeleteUserSessions revokes every session of a user.
func (r *Repository) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID)
	return wrapError(err)
}

// DeleteExpiredSessions reclaims storage from expired sessions.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, now)
	return wrapError(err)
}
