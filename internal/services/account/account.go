// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account implements the user-account lifecycle: registration,
// verification, email change, password change, disable/enable and hard
// deletion. Every multi-row mutation runs in a transaction; outgoing mail is
// dispatched after commit and never rolls a mutation back.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/account-api/internal/models"
	"codeberg.org/oliverandrich/account-api/internal/repository"
	"codeberg.org/oliverandrich/account-api/internal/services/mailer"
	"codeberg.org/oliverandrich/account-api/internal/services/token"
)

var (
	// ErrNotFound is returned when the addressed user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email address is already taken.
	ErrDuplicateEmail = errors.New("email already taken")
	// ErrNoChangeRequested is returned when an email-change confirmation
	// arrives without a pending change.
	ErrNoChangeRequested = errors.New("no email change requested")
	// ErrTokenMismatch is returned when the submitted token does not match
	// the stored hash.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrTokenUsed is returned when the token was already consumed.
	ErrTokenUsed = errors.New("token already used")
	// ErrTokenExpired is returned when the token lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrPasswordMismatch is returned when a password check fails.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrInvalidCredentials is returned on failed login. It deliberately
	// does not reveal whether the account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAlreadyDisabled is returned when disabling a disabled account.
	ErrAlreadyDisabled = errors.New("account already disabled")
	// ErrAlreadyEnabled is returned when enabling an active account.
	ErrAlreadyEnabled = errors.New("account already enabled")
)

// dummyHash keeps login timing uniform when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalization-password"), bcrypt.MinCost)

// SessionRevoker invalidates all bearer credentials of a user. Disable and
// destroy revoke before they flip account state, so no session outlives an
// active account.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID int64) error
}

// Service carries out account lifecycle operations.
type Service struct {
	repo     *repository.Repository
	tokens   *token.Issuer
	mail     mailer.Gateway // nil disables outgoing mail
	sessions SessionRevoker
	hasher   PasswordHasher
	Now      func() time.Time // injected for tests
}

// NewService creates the account service. mail may be nil when no SMTP
// gateway is configured.
func NewService(repo *repository.Repository, tokens *token.Issuer, mail mailer.Gateway, sessions SessionRevoker, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		mail:     mail,
		sessions: sessions,
		hasher:   hasher,
		Now:      time.Now,
	}
}

// RegisterParams are the inputs for Register.
type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Role     *int64
}

// Register creates an unverified account together with its verification
// token, then mails the plaintext token to the new address.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	plaintext, tokenHash, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(params.Name),
		Role:         params.Role,
	}

	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := tx.UpsertVerificationToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
			return fmt.Errorf("store verification token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch("verification", func() error {
		return s.mail.SendVerification(ctx, user.Email, plaintext)
	})

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Get returns an active user by id.
func (s *Service) Get(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ConsumeVerification validates the token mailed at registration and marks
// the account verified. The token is consumed exactly once: a concurrent
// duplicate request loses the compare-and-set and gets ErrTokenUsed.
func (s *Service) ConsumeVerification(ctx context.Context, email, plaintext string) error {
	var userID int64

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return asNotFound(err)
		}

		rec, err := tx.GetVerificationToken(ctx, user.ID)
		if err != nil {
			return asNotFound(err)
		}

		if err := s.checkToken(plaintext, rec.TokenHash, rec.IsUsed, rec.ExpiresAt); err != nil {
			return err
		}

		if err := tx.MarkUserVerified(ctx, user.ID); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if err := tx.MarkVerificationTokenUsed(ctx, user.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenUsed
			}
			return fmt.Errorf("consume verification token: %w", err)
		}

		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("account verified", "user_id", userID)
	return nil
}

// RegenerateVerification mints a replacement verification token for a user
// who lost the original mail. The stored record is overwritten in place, so
// the previous plaintext stops working immediately.
func (s *Service) RegenerateVerification(ctx context.Context, userID int64) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return asNotFound(err)
	}

	plaintext, tokenHash, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return err
	}
	if err := s.repo.UpsertVerificationToken(ctx, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	s.dispatch("verification", func() error {
		return s.mail.SendVerification(ctx, user.Email, plaintext)
	})

	slog.Info("verification token regenerated", "user_id", userID)
	return nil
}

// UpdateName changes the display name of an active user.
func (s *Service) UpdateName(ctx context.Context, userID int64, name string) error {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return asNotFound(err)
	}
	return s.repo.UpdateUserName(ctx, userID, strings.TrimSpace(name))
}

// RequestEmailChange stages a change of email address. The current address
// stays live until the change is confirmed with the mailed token. Returns
// false without side effects when newEmail equals the current address. A
// repeated request overwrites the pending record, keeping at most one pending
// change per user.
func (s *Service) RequestEmailChange(ctx context.Context, userID int64, newEmail string) (bool, error) {
	newEmail = strings.TrimSpace(newEmail)

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, asNotFound(err)
	}
	if newEmail == "" || newEmail == user.Email {
		return false, nil
	}

	plaintext, tokenHash, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return false, err
	}
	if err := s.repo.UpsertEmailChangeToken(ctx, userID, tokenHash, newEmail, expiresAt); err != nil {
		return false, fmt.Errorf("store email change token: %w", err)
	}

	s.dispatch("email change", func() error {
		return s.mail.SendEmailChange(ctx, newEmail, plaintext)
	})

	slog.Info("email change requested", "user_id", userID, "new_email", newEmail)
	return true, nil
}

// ConfirmEmailChange applies a pending email change. The caller proves
// control of the account twice: with the mailed token and with the current
// password. Token checks run before the password check.
func (s *Service) ConfirmEmailChange(ctx context.Context, currentEmail, password, plaintext string) error {
	var userID int64
	var newEmail string

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserByEmail(ctx, currentEmail)
		if err != nil {
			return asNotFound(err)
		}

		rec, err := tx.GetEmailChangeToken(ctx, user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoChangeRequested
			}
			return err
		}

		if err := s.checkToken(plaintext, rec.TokenHash, rec.IsUsed, rec.ExpiresAt); err != nil {
			return err
		}
		if !s.hasher.Verify(password, user.PasswordHash) {
			return ErrPasswordMismatch
		}

		if err := tx.UpdateUserEmail(ctx, user.ID, rec.NewEmail); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("update email: %w", err)
		}
		if err := tx.MarkEmailChangeTokenUsed(ctx, user.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenUsed
			}
			return fmt.Errorf("consume email change token: %w", err)
		}

		userID = user.ID
		newEmail = rec.NewEmail
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("email changed", "user_id", userID, "new_email", newEmail)
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return asNotFound(err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrPasswordMismatch
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	slog.Info("password changed", "user_id", userID)
	return nil
}

// Login checks credentials against an active account. Unknown emails still
// pay the bcrypt comparison cost, so response time does not reveal whether
// the address is registered.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Info("login failed", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		slog.Info("login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	slog.Info("login succeeded", "user_id", user.ID)
	return user, nil
}

// Disable soft-deletes an account. Sessions are revoked before the flag
// flips, so no bearer token keeps working on a disabled account. Disabling
// twice fails and leaves the original disable timestamp untouched.
func (s *Service) Disable(ctx context.Context, userID int64) error {
	user, err := s.repo.GetUserByIDAny(ctx, userID)
	if err != nil {
		return asNotFound(err)
	}
	if user.Disabled() {
		return ErrAlreadyDisabled
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	if err := s.repo.DisableUser(ctx, userID, s.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAlreadyDisabled
		}
		return err
	}

	slog.Info("account disabled", "user_id", userID)
	return nil
}

// Enable reactivates a disabled account. The account password authorizes the
// operation, since the owner has no valid session while disabled.
func (s *Service) Enable(ctx context.Context, email, password string) error {
	user, err := s.repo.GetUserByEmailAny(ctx, email)
	if err != nil {
		return asNotFound(err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	if !user.Disabled() {
		return ErrAlreadyEnabled
	}

	if err := s.repo.EnableUser(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAlreadyEnabled
		}
		return err
	}

	slog.Info("account enabled", "user_id", user.ID)
	return nil
}

// Destroy permanently deletes an account and all its dependent records. The
// deletes run in one transaction; sessions are revoked first.
func (s *Service) Destroy(ctx context.Context, userID int64) error {
	if _, err := s.repo.GetUserByIDAny(ctx, userID); err != nil {
		return asNotFound(err)
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.DeleteVerificationToken(ctx, userID); err != nil {
			return fmt.Errorf("delete verification token: %w", err)
		}
		if err := tx.DeleteEmailChangeToken(ctx, userID); err != nil {
			return fmt.Errorf("delete email change token: %w", err)
		}
		if err := tx.DeleteUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return asNotFound(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("account destroyed", "user_id", userID)
	return nil
}

// checkToken validates a submitted plaintext against a stored record. Order
// matters: a wrong token must not reveal whether the stored one is used or
// expired.
func (s *Service) checkToken(plaintext, hash string, used bool, expiresAt time.Time) error {
	if !token.Verify(plaintext, hash) {
		return ErrTokenMismatch
	}
	if used {
		return ErrTokenUsed
	}
	if s.Now().After(expiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// dispatch sends a mail through the gateway. Delivery failures are logged
// and swallowed; the triggering mutation has already committed.
func (s *Service) dispatch(kind string, send func() error) {
	if s.mail == nil {
		return
	}
	if err := send(); err != nil {
		slog.Warn("mail dispatch failed", "kind", kind, "error", err)
	}
}

func asNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
