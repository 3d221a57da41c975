// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newFastIssuer(ttl time.Duration) *Issuer {
	issuer := NewIssuer(ttl)
	issuer.Cost = bcrypt.MinCost
	return issuer
}

func TestIssue_PlaintextShape(t *testing.T) {
	issuer := newFastIssuer(0)

	plaintext, hash, _, err := issuer.Issue()
	require.NoError(t, err)

	assert.Len(t, plaintext, Length)
	for _, c := range plaintext {
		isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		isDigit := c >= '0' && c <= '9'
		assert.True(t, isLetter || isDigit, "unexpected character %q", c)
	}
	assert.NotEqual(t, plaintext, hash)
}

func TestIssue_HashVerifies(t *testing.T) {
	issuer := newFastIssuer(0)

	plaintext, hash, _, err := issuer.Issue()
	require.NoError(t, err)

	assert.True(t, Verify(plaintext, hash))
	assert.False(t, Verify("not-the-token", hash))
}

func TestIssue_ExpiryUsesClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newFastIssuer(48 * time.Hour)
	issuer.Now = func() time.Time { return now }

	_, _, expiresAt, err := issuer.Issue()
	require.NoError(t, err)

	assert.Equal(t, now.Add(48*time.Hour), expiresAt)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	issuer := newFastIssuer(0)

	first, _, _, err := issuer.Issue()
	require.NoError(t, err)
	second, _, _, err := issuer.Issue()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewIssuer_DefaultTTL(t *testing.T) {
	issuer := NewIssuer(0)
	assert.Equal(t, DefaultTTL, issuer.TTL)
}
