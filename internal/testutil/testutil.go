// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides shared test fixtures.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/account-api/internal/database"
	"codeberg.org/oliverandrich/account-api/internal/models"
	"codeberg.org/oliverandrich/account-api/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB opens a fresh in-memory database with all migrations applied.
// The shared cache keeps the database alive across pooled connections.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, repository.New(db)
}

// HashPassword hashes with the minimum bcrypt cost to keep tests fast.
func HashPassword(t *testing.T, password string) string {
	t.Helper()

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(digest)
}

// CreateUser inserts a user with the given email and password.
func CreateUser(t *testing.T, repo *repository.Repository, email, password string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: HashPassword(t, password),
		Name:         "Test User",
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// CreateUserModel builds an unsaved user model with a fixed password hash.
func CreateUserModel(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "irrelevant",
		Name:         "Test User",
	}
}

// SentMail is one message captured by MailRecorder.
type SentMail struct {
	To    string
	Token string
}

// MailRecorder is a notification gateway that captures outgoing messages
// instead of sending them.
type MailRecorder struct {
	mu            sync.Mutex
	Verifications []SentMail
	EmailChanges  []SentMail
	Err           error // returned from both send methods when set
}

func (m *MailRecorder) SendVerification(_ context.Context, toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Verifications = append(m.Verifications, SentMail{To: toEmail, Token: token})
	return nil
}

func (m *MailRecorder) SendEmailChange(_ context.Context, toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.EmailChanges = append(m.EmailChanges, SentMail{To: toEmail, Token: token})
	return nil
}

// LastVerification returns the most recent captured verification mail.
func (m *MailRecorder) LastVerification(t *testing.T) SentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Verifications)
	return m.Verifications[len(m.Verifications)-1]
}

// LastEmailChange returns the most recent captured email-change mail.
func (m *MailRecorder) LastEmailChange(t *testing.T) SentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.EmailChanges)
	return m.EmailChanges[len(m.EmailChanges)-1]
}
