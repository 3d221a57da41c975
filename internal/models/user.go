// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// RoleAdmin is the role value that grants access to other users' accounts.
const RoleAdmin int64 = 1

// User is the account aggregate. Disabled accounts keep their row and
// relations; DeletedAt marks them as soft-deleted until hard deletion.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	IsVerified   bool       `db:"is_verified" json:"is_verified"`
	Role         *int64     `db:"role" json:"role,omitempty"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Disabled reports whether the account is soft-deleted.
func (u *User) Disabled() bool {
	return u.DeletedAt != nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role != nil && *u.Role == RoleAdmin
}
