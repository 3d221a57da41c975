// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"codeberg.org/oliverandrich/account-api/internal/models"
	"codeberg.org/oliverandrich/account-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users",
		`{"email":"alice@example.com","password":"password123","confirm_password":"password123","name":"Alice"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := envelope(t, rec)
	assert.Equal(t, "Account created succesfully, you need verify it to access.", body["message"])
	assert.Equal(t, false, body["error"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "alice@example.com", data["email"])
	assert.Equal(t, false, data["is_verified"])

	// The password hash never leaves the server.
	_, leaked := data["password_hash"]
	assert.False(t, leaked)
}

func TestRegister_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/v1/users",
		`{"email":"not-an-email","password":"short","confirm_password":"other","name":""}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := envelope(t, rec)
	assert.Equal(t, "Validation error.", body["message"])
	assert.Equal(t, true, body["error"])

	errs := body["errors"].([]any)
	assert.Contains(t, errs, "The email does not comply with the email format.")
	assert.Contains(t, errs, "The password must have at least 8 character.")
	assert.Contains(t, errs, "The passwords do not match.")
	assert.Contains(t, errs, "The name is required.")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)

	api.register(t, "alice@example.com")

	rec := api.do(http.MethodPost, "/v1/users",
		`{"email":"alice@example.com","password":"password123","confirm_password":"password123","name":"Alice"}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := envelope(t, rec)["errors"].([]any)
	assert.Contains(t, errs, "The entered email is already registered.")
}

func TestVerifyAccount_Flow(t *testing.T) {
	api := newTestAPI(t)

	api.register(t, "alice@example.com")
	sent := api.mail.LastVerification(t)

	// Missing parameters.
	rec := api.do(http.MethodGet, "/v1/users/verify-account?email=alice@example.com", "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The email and token are required.", envelope(t, rec)["message"])

	// Wrong token.
	rec = api.do(http.MethodGet, "/v1/users/verify-account?email=alice@example.com&token=wrong", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect token", envelope(t, rec)["message"])

	// Correct token.
	path := fmt.Sprintf("/v1/users/verify-account?email=%s&token=%s",
		url.QueryEscape("alice@example.com"), url.QueryEscape(sent.Token))
	rec = api.do(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account verified successfully", envelope(t, rec)["message"])

	// Replaying the token fails.
	rec = api.do(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "The token has been used, generate another one.", envelope(t, rec)["message"])
}

func TestRegenerateVerificationToken(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")

	rec := api.do(http.MethodGet, fmt.Sprintf("/v1/users/regenerate-verification-token/%d", id), "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/v1/users/regenerate-verification-token/9999", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/v1/users/regenerate-verification-token/abc", "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := envelope(t, rec)["errors"].([]any)
	assert.Contains(t, errs, "The ID must be numeric.")
}

func TestGetUser_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")

	rec := api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", id), "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated.", envelope(t, rec)["message"])
}

func TestGetUser_OwnerAndStranger(t *testing.T) {
	api := newTestAPI(t)

	aliceID := api.register(t, "alice@example.com")
	api.register(t, "bob@example.com")

	aliceToken := api.login(t, "alice@example.com", "password123")
	bobToken := api.login(t, "bob@example.com", "password123")

	// Owner sees the account.
	rec := api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", aliceID), "", aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "alice@example.com", data["email"])

	// A stranger does not.
	rec = api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", aliceID), "", bobToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "This action is unauthorized.", envelope(t, rec)["message"])
}

func TestGetUser_AdminSeesEveryone(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	aliceID := api.register(t, "alice@example.com")

	role := models.RoleAdmin
	admin := &models.User{
		Email:        "admin@example.com",
		PasswordHash: testutil.HashPassword(t, "password123"),
		Name:         "Admin",
		Role:         &role,
	}
	require.NoError(t, api.repo.CreateUser(ctx, admin))

	adminToken := api.login(t, "admin@example.com", "password123")

	rec := api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", aliceID), "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateUser_NameOnly(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")
	bearer := api.login(t, "alice@example.com", "password123")

	rec := api.do(http.MethodPut, fmt.Sprintf("/v1/users/%d", id), `{"name":"Alice Cooper"}`, bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", id), "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Alice Cooper", data["name"])
}

func TestUpdateUser_EmailChangeReturnsAccepted(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")
	bearer := api.login(t, "alice@example.com", "password123")

	rec := api.do(http.MethodPut, fmt.Sprintf("/v1/users/%d", id), `{"email":"alice@new.example.com"}`, bearer)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t,
		"To change the email address an authorization token was sent to the new email address.",
		envelope(t, rec)["message"])

	// The token went to the new address; the login email is unchanged.
	sent := api.mail.LastEmailChange(t)
	assert.Equal(t, "alice@new.example.com", sent.To)

	rec = api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", id), "", bearer)
	data := envelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "alice@example.com", data["email"])
}

func TestConfirmEmailChange_Flow(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")
	bearer := api.login(t, "alice@example.com", "password123")

	rec := api.do(http.MethodPut, fmt.Sprintf("/v1/users/%d", id), `{"email":"alice@new.example.com"}`, bearer)
	require.Equal(t, http.StatusAccepted, rec.Code)
	sent := api.mail.LastEmailChange(t)

	// Wrong password.
	rec = api.do(http.MethodPost, "/v1/users/change-email?token="+url.QueryEscape(sent.Token),
		`{"previous_email":"alice@example.com","password":"wrong-password"}`, bearer)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "The password is incorrect.", envelope(t, rec)["message"])

	// Correct password.
	rec = api.do(http.MethodPost, "/v1/users/change-email?token="+url.QueryEscape(sent.Token),
		`{"previous_email":"alice@example.com","password":"password123"}`, bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The old address no longer identifies a pending change.
	rec = api.do(http.MethodPost, "/v1/users/change-email?token="+url.QueryEscape(sent.Token),
		`{"previous_email":"alice@example.com","password":"password123"}`, bearer)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "The user has not requested a change of email address.", envelope(t, rec)["message"])
}

func TestChangePassword(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")

	// Wrong old password.
	rec := api.do(http.MethodPatch, fmt.Sprintf("/v1/users/change-password/%d", id),
		`{"old_password":"wrong","new_password":"newpassword1","confirm_password":"newpassword1"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := envelope(t, rec)
	assert.Equal(t, "Unauthorized", body["message"])
	assert.Contains(t, body["errors"].([]any), "The old password does not match the one provided.")

	// Success.
	rec = api.do(http.MethodPatch, fmt.Sprintf("/v1/users/change-password/%d", id),
		`{"old_password":"password123","new_password":"newpassword1","confirm_password":"newpassword1"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	api.login(t, "alice@example.com", "newpassword1")
}

func TestDisableAccount(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")
	bearer := api.login(t, "alice@example.com", "password123")

	rec := api.do(http.MethodDelete, fmt.Sprintf("/v1/users/disable-account/%d", id), "", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The session died with the account.
	rec = api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", id), "", bearer)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging in while disabled fails.
	rec = api.do(http.MethodPost, "/v1/users/login",
		`{"email":"alice@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password.", envelope(t, rec)["message"])
}

func TestDisableAccount_AlreadyDisabled(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	id := api.register(t, "alice@example.com")
	require.NoError(t, api.accounts.Disable(ctx, id))

	api.register(t, "admin@example.com")
	adminToken := api.login(t, "admin@example.com", "password123")
	promoteToAdmin(t, api, "admin@example.com")

	rec := api.do(http.MethodDelete, fmt.Sprintf("/v1/users/disable-account/%d", id), "", adminToken)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "The account is already disabled.", envelope(t, rec)["message"])
}

func TestEnableAccount(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	id := api.register(t, "alice@example.com")

	// Enabling an active account conflicts.
	rec := api.do(http.MethodPost, "/v1/users/enable-account",
		`{"email":"alice@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "The account is already enabled.", envelope(t, rec)["message"])

	require.NoError(t, api.accounts.Disable(ctx, id))

	rec = api.do(http.MethodPost, "/v1/users/enable-account",
		`{"email":"alice@example.com","password":"wrong"}`, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/v1/users/enable-account",
		`{"email":"alice@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	api.login(t, "alice@example.com", "password123")
}

func TestDestroyUser(t *testing.T) {
	api := newTestAPI(t)

	id := api.register(t, "alice@example.com")
	bearer := api.login(t, "alice@example.com", "password123")

	rec := api.do(http.MethodDelete, fmt.Sprintf("/v1/users/%d", id), "", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Account and session are gone.
	rec = api.do(http.MethodGet, fmt.Sprintf("/v1/users/%d", id), "", bearer)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/v1/users/login",
		`{"email":"alice@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// promoteToAdmin flips the role directly in the database.
func promoteToAdmin(t *testing.T, api *testAPI, email string) {
	t.Helper()

	user, err := api.repo.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NoError(t, api.repo.UpdateUserRole(context.Background(), user.ID, models.RoleAdmin))
}
