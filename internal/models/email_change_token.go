// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// EmailChangeToken stores the pending email-change request for a user.
// NewEmail is the destination address and stays authoritative until the
// record is consumed or overwritten by a newer request. Keyed by user_id,
// at most one pending change per user.
type EmailChangeToken struct { //nolint:govet // fieldalignment: readability over optimization
	UserID    int64     `db:"user_id" json:"user_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	NewEmail  string    `db:"new_email" json:"new_email"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsUsed    bool      `db:"is_used" json:"is_used"`
}
