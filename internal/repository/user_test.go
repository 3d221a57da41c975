// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/repository"
	"codeberg.org/oliverandrich/account-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_AssignsID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")
	assert.Positive(t, user.ID)

	got, err := repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.DeletedAt)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	testutil.CreateUser(t, repo, "alice@example.com", "password123")

	err := repo.CreateUser(context.Background(), testutil.CreateUserModel("alice@example.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestGetUserByEmail_ActiveOnly(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")
	require.NoError(t, repo.DisableUser(ctx, user.ID, time.Now()))

	_, err := repo.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetUserByEmailAny(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)
}

func TestDisableUser_IsCompareAndSet(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.DisableUser(ctx, user.ID, first))

	// A second disable must not move the timestamp.
	err := repo.DisableUser(ctx, user.ID, first.Add(time.Hour))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetUserByIDAny(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, got.DeletedAt.Equal(first), "disable timestamp changed: %v", got.DeletedAt)
}

func TestEnableUser_OnlyWhenDisabled(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")

	err := repo.EnableUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.DisableUser(ctx, user.ID, time.Now()))
	require.NoError(t, repo.EnableUser(ctx, user.ID))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
}

func TestUpdateUserEmail_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "taken@example.com", "password123")
	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")

	err := repo.UpdateUserEmail(ctx, user.ID, "taken@example.com")
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestDeleteUser_RemovesRow(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com", "password123")

	require.NoError(t, repo.DeleteUser(ctx, user.ID))

	_, err := repo.GetUserByIDAny(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.DeleteUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	errBoom := assert.AnError
	err := repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateUser(ctx, testutil.CreateUserModel("alice@example.com")); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = repo.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
