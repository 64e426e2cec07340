package services

import (
	"net/mail"
	"strings"

	"github.com/ljmarquez/latch/core"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// normalizeEmail canonicalizes an address so that one mailbox maps to
// one account. Matches the case-insensitive unique index in storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return core.ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return core.ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return core.ErrPasswordRequired
	case len(password) < minPasswordLength:
		return core.ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return core.ErrPasswordTooLong
	}
	return nil
}
