// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package coffee

import (
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Limits on user-supplied fields.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MaxNameLength     = 50
	MaxMessageLength  = 280
)

var usernamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateUsername checks a username against the registration rules:
// 3 to 20 characters, lowercase letters, digits and underscores,
// starting with a letter.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalid{Field: "username", Reason: "must be 3 to 20 characters"}
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalid{Field: "username", Reason: "must be lowercase letters, digits or underscores, starting with a letter"}
	}
	return nil
}

// ValidateTip checks the fields of a tip before it is submitted.  The
// name is checked after trimming surrounding whitespace.
func ValidateTip(name, message string, amount *big.Int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalid{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrInvalid{Field: "name", Reason: "is too long"}
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return ErrInvalid{Field: "message", Reason: "is too long"}
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalid{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress checks that address is a 0x-prefixed 20-byte hex
// string.
func ValidateAddress(field, address string) error {
	if !addressPattern.MatchString(address) {
		return ErrInvalid{Field: field, Reason: "must be a 0x-prefixed hex address"}
	}
	return nil
}
