// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/account-api/internal/services/account"
	"github.com/labstack/echo/v4"
)

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name"`
}

// Register creates a new, unverified account.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The request body is malformed.")
	}

	var errs []string
	errs = append(errs, validateEmail(req.Email)...)
	errs = append(errs, validatePassword(req.Password, req.ConfirmPassword)...)
	errs = append(errs, validateName(req.Name)...)
	if len(errs) > 0 {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", errs...)
	}

	user, err := h.accounts.Register(c.Request().Context(), account.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The entered email is already registered.")
	case err != nil:
		return respondInternal(c, err)
	}

	return respondSuccess(c, http.StatusCreated,
		"Account created succesfully, you need verify it to access.", user)
}

// GetUser returns a single account. Owner or admin only.
func (h *Handlers) GetUser(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The ID must be numeric.")
	}
	if !canManage(currentUser(c), id) {
		return respondFail(c, http.StatusForbidden, "This action is unauthorized.")
	}

	user, err := h.accounts.Get(c.Request().Context(), id)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case err != nil:
		return respondInternal(c, err)
	}

	return respondSuccess(c, http.StatusOK, "", user)
}

// UpdateUserRequest is the request body for updating an account.
type UpdateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UpdateUser changes the display name directly. A differing email address is
// not applied; it stages an email change that the owner confirms with the
// token mailed to the new address, answered here with 202.
func (h *Handlers) UpdateUser(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The ID must be numeric.")
	}
	if !canManage(currentUser(c), id) {
		return respondFail(c, http.StatusForbidden, "This action is unauthorized.")
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The request body is malformed.")
	}
	if req.Email != "" {
		if errs := validateEmail(req.Email); len(errs) > 0 {
			return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", errs...)
		}
	}
	if req.Name != "" {
		if errs := validateName(req.Name); len(errs) > 0 {
			return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", errs...)
		}
	}

	ctx := c.Request().Context()

	pending, err := h.accounts.RequestEmailChange(ctx, id, req.Email)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case err != nil:
		return respondInternal(c, err)
	}

	if req.Name != "" {
		if err := h.accounts.UpdateName(ctx, id, req.Name); err != nil {
			return respondInternal(c, err)
		}
	}

	if pending {
		return respondSuccess(c, http.StatusAccepted,
			"To change the email address an authorization token was sent to the new email address.", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyAccount consumes the verification token mailed at registration.
func (h *Handlers) VerifyAccount(c echo.Context) error {
	email := c.QueryParam("email")
	token := c.QueryParam("token")
	if email == "" || token == "" {
		return respondFail(c, http.StatusUnprocessableEntity, "The email and token are required.")
	}

	err := h.accounts.ConsumeVerification(c.Request().Context(), email, token)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, account.ErrTokenMismatch):
		return respondFail(c, http.StatusBadRequest, "Incorrect token")
	case errors.Is(err, account.ErrTokenUsed):
		return respondFail(c, http.StatusForbidden, "The token has been used, generate another one.")
	case errors.Is(err, account.ErrTokenExpired):
		return respondFail(c, http.StatusForbidden, "The token has expired, generate another one.")
	case err != nil:
		return respondInternal(c, err)
	}

	return respondSuccess(c, http.StatusOK, "Account verified successfully", nil)
}

// RegenerateVerificationToken reissues the verification token for a user who
// lost the original mail. The previous token stops working.
func (h *Handlers) RegenerateVerificationToken(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The ID must be numeric.")
	}

	err := h.accounts.RegenerateVerification(c.Request().Context(), id)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ChangePasswordRequest is the request body for changing a password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword replaces the password. The old password authorizes the
// operation, so the route works without a session.
func (h *Handlers) ChangePassword(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error", "The ID must be numeric.")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error", "The request body is malformed.")
	}

	var errs []string
	if req.OldPassword == "" {
		errs = append(errs, "The old password is required.")
	}
	errs = append(errs, validatePassword(req.NewPassword, req.ConfirmPassword)...)
	if len(errs) > 0 {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error", errs...)
	}

	err := h.accounts.ChangePassword(c.Request().Context(), id, req.OldPassword, req.NewPassword)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, account.ErrPasswordMismatch):
		return respondFail(c, http.StatusUnauthorized, "Unauthorized", "The old password does not match the one provided.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ConfirmEmailChangeRequest is the request body for confirming a staged
// email change. The token travels as a query parameter, like in the mail.
type ConfirmEmailChangeRequest struct {
	PreviousEmail string `json:"previous_email"`
	Password      string `json:"password"`
}

// ConfirmEmailChange applies a staged email change after checking the mailed
// token and the account password.
func (h *Handlers) ConfirmEmailChange(c echo.Context) error {
	var req ConfirmEmailChangeRequest
	if err := c.Bind(&req); err != nil {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The request body is malformed.")
	}
	token := c.QueryParam("token")

	var errs []string
	if req.PreviousEmail == "" {
		errs = append(errs, "The email is required.")
	}
	if req.Password == "" {
		errs = append(errs, "The password is required.")
	}
	if token == "" {
		errs = append(errs, "The token is required.")
	}
	if len(errs) > 0 {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", errs...)
	}

	err := h.accounts.ConfirmEmailChange(c.Request().Context(), req.PreviousEmail, req.Password, token)
	switch {
	case errors.Is(err, account.ErrNotFound), errors.Is(err, account.ErrNoChangeRequested):
		return respondFail(c, http.StatusNotFound, "The user has not requested a change of email address.")
	case errors.Is(err, account.ErrTokenMismatch):
		return respondFail(c, http.StatusBadRequest, "Incorrect token")
	case errors.Is(err, account.ErrTokenUsed):
		return respondFail(c, http.StatusForbidden, "The token has been used, generate another one.")
	case errors.Is(err, account.ErrTokenExpired):
		return respondFail(c, http.StatusForbidden, "The token has expired, generate another one.")
	case errors.Is(err, account.ErrPasswordMismatch):
		return respondFail(c, http.StatusForbidden, "The password is incorrect.")
	case errors.Is(err, account.ErrDuplicateEmail):
		return respondFail(c, http.StatusConflict,
			"The selected email has already been taken by someone else to change it as theirs.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DisableAccount soft-deletes an account. Owner or admin only. All sessions
// of the account are revoked.
func (h *Handlers) DisableAccount(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The ID must be numeric.")
	}
	if !canManage(currentUser(c), id) {
		return respondFail(c, http.StatusForbidden, "This action is unauthorized.")
	}

	err := h.accounts.Disable(c.Request().Context(), id)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, account.ErrAlreadyDisabled):
		return respondFail(c, http.StatusConflict, "The account is already disabled.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// EnableAccountRequest is the request body for restoring a disabled account.
type EnableAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EnableAccount restores a disabled account. The owner has no valid session
// while disabled, so the account password authorizes the operation.
func (h *Handlers) EnableAccount(c echo.Context) error {
	var req EnableAccountRequest
	if err := c.Bind(&req); err != nil {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The request body is malformed.")
	}

	var errs []string
	if req.Email == "" {
		errs = append(errs, "The email is required.")
	}
	if req.Password == "" {
		errs = append(errs, "The password is required.")
	}
	if len(errs) > 0 {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", errs...)
	}

	err := h.accounts.Enable(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, account.ErrPasswordMismatch):
		return respondFail(c, http.StatusForbidden, "The password is incorrect.")
	case errors.Is(err, account.ErrAlreadyEnabled):
		return respondFail(c, http.StatusConflict, "The account is already enabled.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DestroyUser permanently deletes an account and everything attached to it.
// Owner or admin only.
func (h *Handlers) DestroyUser(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return respondFail(c, http.StatusUnprocessableEntity, "Validation error.", "The ID must be numeric.")
	}
	if !canManage(currentUser(c), id) {
		return respondFail(c, http.StatusForbidden, "This action is unauthorized.")
	}

	err := h.accounts.Destroy(c.Request().Context(), id)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "User not found.")
	case err != nil:
		return respondInternal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
