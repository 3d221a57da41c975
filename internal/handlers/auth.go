// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/account-api/internal/services/account"
	"github.com/labstack/echo/v4"
)

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and issues a bearer token. Disabled accounts
// cannot log in.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
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

	ctx := c.Request().Context()

	user, err := h.accounts.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		return respondFail(c, http.StatusUnauthorized, "Invalid email or password.")
	case err != nil:
		return respondInternal(c, err)
	}

	token, err := h.sessions.Issue(ctx, user.ID)
	if err != nil {
		return respondInternal(c, err)
	}

	return respondSuccess(c, http.StatusOK, "Logged in successfully.", map[string]any{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the bearer token of the current request.
func (h *Handlers) Logout(c echo.Context) error {
	token, _ := c.Get(bearerContextKey).(string)
	if err := h.sessions.Revoke(c.Request().Context(), token); err != nil {
		return respondInternal(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
