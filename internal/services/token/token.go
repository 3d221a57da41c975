// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token mints the single-use secrets that gate sensitive account
// mutations.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Length is the number of characters in a plaintext token. It stays
	// below bcrypt's 72-byte input limit.
	Length = 71
	// DefaultTTL is how long tokens are valid unless configured otherwise.
	DefaultTTL = 48 * time.Hour

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Issuer mints opaque random tokens and derives the storable hash. Only the
// bcrypt hash is ever persisted, so a leaked token table does not yield
// usable tokens.
type Issuer struct {
	TTL  time.Duration
	Cost int
	Now  func() time.Time // injected for tests
}

// NewIssuer creates an Issuer with the given token lifetime.
func NewIssuer(ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		TTL:  ttl,
		Cost: bcrypt.DefaultCost,
		Now:  time.Now,
	}
}

// Issue mints a new token. Returns the plaintext (handed to the notification
// gateway, never stored), the bcrypt hash for storage, and the expiry time.
func (i *Issuer) Issue() (plaintext, hash string, expiresAt time.Time, err error) {
	plaintext, err = randomString(Length)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), i.Cost)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("hash token: %w", err)
	}

	return plaintext, string(digest), i.Now().Add(i.TTL), nil
}

// Verify reports whether plaintext matches the stored hash. The bcrypt
// comparison is constant-time with respect to the hash contents.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// randomString draws n characters from the token alphabet using a
// cryptographically secure source, without modulo bias.
func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
