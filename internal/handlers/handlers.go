// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP layer: a thin routing and validation
// shell around the account service, speaking the JSON envelope this API has
// always spoken.
package handlers

import (
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/account-api/internal/models"
	"codeberg.org/oliverandrich/account-api/internal/services/account"
	"codeberg.org/oliverandrich/account-api/internal/services/session"
	"github.com/labstack/echo/v4"
)

// Context keys for values set by RequireAuth.
const (
	userContextKey   = "authenticated_user"
	bearerContextKey = "bearer_token"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	accounts *account.Service
	sessions *session.Manager
}

// New creates a new Handlers instance.
func New(accounts *account.Service, sessions *session.Manager) *Handlers {
	return &Handlers{
		accounts: accounts,
		sessions: sessions,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// RequireAuth resolves the bearer token to a user and stores both on the
// request context. Disabled and deleted accounts fail authentication.
func (h *Handlers) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		user, err := h.sessions.Authenticate(c.Request().Context(), token)
		if err != nil {
			return respondFail(c, http.StatusUnauthorized, "Unauthenticated.")
		}

		c.Set(userContextKey, user)
		c.Set(bearerContextKey, token)
		return next(c)
	}
}

// currentUser returns the authenticated user set by RequireAuth.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// canManage reports whether the actor may operate on the target account:
// owners manage themselves, admins manage everyone.
func canManage(actor *models.User, targetID int64) bool {
	return actor != nil && (actor.ID == targetID || actor.IsAdmin())
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
