// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"regexp"
	"strconv"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 60
	emailMinLen    = 10
	emailMaxLen    = 50
	nameMaxLen     = 100
)

// emailPattern is a coarse shape check; real verification happens through the
// token mailed to the address.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// parseID parses a numeric path parameter.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func validateEmail(email string) []string {
	switch {
	case email == "":
		return []string{"The email is required."}
	case !emailPattern.MatchString(email):
		return []string{"The email does not comply with the email format."}
	case len(email) > emailMaxLen:
		return []string{"The email must be a maximum of 50 characters."}
	case len(email) < emailMinLen:
		return []string{"The email must have at least 10 characters."}
	}
	return nil
}

func validatePassword(password, confirm string) []string {
	var errs []string
	switch {
	case password == "":
		errs = append(errs, "The password is required.")
	case len(password) < passwordMinLen:
		errs = append(errs, "The password must have at least 8 character.")
	case len(password) > passwordMaxLen:
		errs = append(errs, "The password be a maximum of 60 characters.")
	}
	switch {
	case confirm == "":
		errs = append(errs, "The confirmation password is required.")
	case confirm != password:
		errs = append(errs, "The passwords do not match.")
	}
	return errs
}

func validateName(name string) []string {
	switch {
	case name == "":
		return []string{"The name is required."}
	case len(name) > nameMaxLen:
		return []string{"The name must be a maximum of 100 characters."}
	}
	return nil
}
