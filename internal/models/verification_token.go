// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// VerificationToken stores the pending account-verification secret for a user.
// The table is keyed by user_id, so there is at most one record per user; a
// re-issue overwrites it in place. Only a bcrypt hash of the token is stored.
type VerificationToken struct { //nolint:govet // fieldalignment: readability over optimization
	UserID    int64     `db:"user_id" json:"user_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsUsed    bool      `db:"is_used" json:"is_used"`
}
