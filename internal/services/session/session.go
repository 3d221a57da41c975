// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and validates the opaque bearer tokens returned by
// login. Sessions are server-side rows, so revoking all credentials of a user
// is a single delete.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/models"
	"codeberg.org/oliverandrich/account-api/internal/repository"
	"github.com/google/uuid"
)

// TokenBytes is the entropy of a bearer token (hex-encoded to 64 chars).
const TokenBytes = 32

// DefaultTTL is the session lifetime unless configured otherwise.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for unknown, expired or revoked bearer tokens.
var ErrInvalidToken = errors.New("invalid or expired session token")

// Manager issues, authenticates and revokes bearer sessions.
type Manager struct {
	repo *repository.Repository
	ttl  time.Duration
	Now  func() time.Time // injected for tests
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(repo *repository.Repository, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		repo: repo,
		ttl:  ttl,
		Now:  time.Now,
	}
}

// Issue creates a session for the user and returns the plaintext bearer
// token. Storage holds only the SHA256 digest; the high entropy of the token
// makes a fast hash sufficient here.
func (m *Manager) Issue(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	plaintext := hex.EncodeToString(buf)

	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(plaintext),
		ExpiresAt: m.Now().Add(m.ttl),
	}
	if err := m.repo.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return plaintext, nil
}

// Authenticate resolves a bearer token to its active user. Expired sessions
// are deleted on sight; disabled or deleted users fail authentication.
func (m *Manager) Authenticate(ctx context.Context, plaintext string) (*models.User, error) {
	if plaintext == "" {
		return nil, ErrInvalidToken
	}

	digest := HashToken(plaintext)
	sess, err := m.repo.GetSessionByTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if m.Now().After(sess.ExpiresAt) {
		_ = m.repo.DeleteSession(ctx, digest)
		return nil, ErrInvalidToken
	}

	user, err := m.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return user, nil
}

// Revoke invalidates a single bearer token.
func (m *Manager) Revoke(ctx context.Context, plaintext string) error {
	return m.repo.DeleteSession(ctx, HashToken(plaintext))
}

// RevokeAll invalidates every bearer token of a user. Called on disable and
// destroy.
func (m *Manager) RevokeAll(ctx context.Context, userID int64) error {
	return m.repo.DeleteUserSessions(ctx, userID)
}

// HashToken computes the SHA256 hex digest of a bearer token.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
