// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/models"
)

const userColumns = `id, email, password_hash, name, is_verified, role, deleted_at, created_at, updated_at`

// CreateUser inserts a new, unverified user and fills in its id.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	res, err := r.conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, is_verified, role) VALUES (?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Name, user.IsVerified, user.Role)
	if err != nil {
		return wrapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves an active (not soft-deleted) user by id.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByIDAny retrieves a user by id, including soft-deleted ones.
func (r *Repository) GetUserByIDAny(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an active user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmailAny retrieves a user by email, including soft-deleted ones.
func (r *Repository) GetUserByEmailAny(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// MarkUserVerified flips the is_verified flag.
func (r *Repository) MarkUserVerified(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return wrapError(err)
}

// UpdateUserName updates the display name.
func (r *Repository) UpdateUserName(ctx context.Context, id int64, name string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	return wrapError(err)
}

// UpdateUserEmail replaces the email address. The unique constraint surfaces
// as ErrDuplicateEmail when the destination address is already taken.
func (r *Repository) UpdateUserEmail(ctx context.Context, id int64, email string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, email, id)
	return wrapError(err)
}

// UpdateUserRole assigns a role to the user.
func (r *Repository) UpdateUserRole(ctx context.Context, id int64, role int64) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, role, id)
	return wrapError(err)
}

// UpdateUserPassword replaces the stored password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, passwordHash, id)
	return wrapError(err)
}

// DisableUser sets the soft-delete marker. The guard on deleted_at makes the
// write a compare-and-set: ErrNotFound means the user was already disabled
// (or does not exist), and the original timestamp is left untouched.
func (r *Repository) DisableUser(ctx context.Context, id int64, at time.Time) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		at, id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// EnableUser clears the soft-delete marker. ErrNotFound means the user was
// not disabled.
func (r *Repository) EnableUser(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE users SET deleted_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NOT NULL`,
		id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// DeleteUser permanently removes the user row regardless of soft-delete state.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}
