// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, database, services and routes into a
// running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/account-api/internal/config"
	"codeberg.org/oliverandrich/account-api/internal/database"
	"codeberg.org/oliverandrich/account-api/internal/handlers"
	"codeberg.org/oliverandrich/account-api/internal/repository"
	"codeberg.org/oliverandrich/account-api/internal/services/account"
	"codeberg.org/oliverandrich/account-api/internal/services/mailer"
	"codeberg.org/oliverandrich/account-api/internal/services/session"
	"codeberg.org/oliverandrich/account-api/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Services
	repo := repository.New(db)
	issuer := token.NewIssuer(cfg.Tokens.TTL())
	sessions := session.NewManager(repo, cfg.Sessions.TTL())

	var gateway mailer.Gateway
	if cfg.SMTP.Host != "" {
		svc, mailErr := mailer.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if mailErr != nil {
			return fmt.Errorf("failed to configure mailer: %w", mailErr)
		}
		gateway = svc
	} else {
		slog.Warn("no SMTP host configured, outgoing mail disabled")
	}

	accounts := account.NewService(repo, issuer, gateway, sessions, nil)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, handlers.New(accounts, sessions))

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	users := e.Group("/v1/users")

	// Public routes. Sensitive ones carry their own proof: mailed token or
	// account password.
	users.POST("", h.Register)
	users.POST("/login", h.Login)
	users.POST("/enable-account", h.EnableAccount)
	users.GET("/verify-account", h.VerifyAccount)
	users.GET("/regenerate-verification-token/:id", h.RegenerateVerificationToken)
	users.PATCH("/change-password/:id", h.ChangePassword)

	// Bearer-token routes
	auth := users.Group("", h.RequireAuth)
	auth.GET("/logout", h.Logout)
	auth.POST("/change-email", h.ConfirmEmailChange)
	auth.DELETE("/disable-account/:id", h.DisableAccount)
	auth.GET("/:id", h.GetUser)
	auth.PUT("/:id", h.UpdateUser)
	auth.DELETE("/:id", h.DestroyUser)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
