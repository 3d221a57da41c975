// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// msgInternal is the only message internal failures ever expose.
const msgInternal = "An error has occurred, try again or contact the administrator."

type successEnvelope struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Error   bool   `json:"error"`
	Data    any    `json:"data"`
}

type failEnvelope struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Error   bool     `json:"error"`
	Errors  []string `json:"errors"`
}

// respondSuccess writes the success envelope. data defaults to an empty list,
// matching what clients of this API historically received.
func respondSuccess(c echo.Context, status int, message string, data any) error {
	if message == "" {
		message = "Success"
	}
	if data == nil {
		data = []any{}
	}
	return c.JSON(status, successEnvelope{
		Message: message,
		Status:  status,
		Data:    data,
	})
}

// respondFail writes the failure envelope.
func respondFail(c echo.Context, status int, message string, errs ...string) error {
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(status, failEnvelope{
		Message: message,
		Status:  status,
		Error:   true,
		Errors:  errs,
	})
}

// respondInternal logs the real error and returns the generic 500 envelope.
// Internals never leak to clients.
func respondInternal(c echo.Context, err error) error {
	slog.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return respondFail(c, 500, msgInternal)
}
