// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package coffee

import (
	"errors"
	"fmt"
)

// ErrUserRejected is returned when the wallet holder declined to sign
// a transaction.  It must never be retried.
var ErrUserRejected = errors.New("Transaction rejected by user")

// ErrNoContract is returned from write operations when no contract
// address is configured.  Reads never return it.
var ErrNoContract = errors.New("No contract address configured")

// ErrWritesDisabled is returned from write operations when the
// configured network does not allow transactions.
var ErrWritesDisabled = errors.New("Writes are disabled for this network")

// ErrTransactionFailed is returned when a mined transaction reverted.
var ErrTransactionFailed = errors.New("Transaction failed")

// ErrUsernameTaken is returned when registering a username that is
// already in use.
var ErrUsernameTaken = errors.New("Username is already taken")

// ErrProfileExists is returned when creating a second profile for
// one address.
var ErrProfileExists = errors.New("Profile already exists for address")

// ErrNoSuchProfile is returned by profile lookups that find nothing.
type ErrNoSuchProfile struct {
	// Key is the address or username that was looked up.
	Key string
}

func (err ErrNoSuchProfile) Error() string {
	return fmt.Sprintf("No such profile %v", err.Key)
}

// ErrInvalid is returned when user input fails validation.
type ErrInvalid struct {
	Field  string
	Reason string
}

func (err ErrInvalid) Error() string {
	return fmt.Sprintf("Invalid %v: %v", err.Field, err.Reason)
}

// IsUserRejected reports whether err is, or wraps, ErrUserRejected.
func IsUserRejected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}

// IsNoSuchProfile reports whether err is, or wraps, an
// ErrNoSuchProfile.
func IsNoSuchProfile(err error) bool {
	var missing ErrNoSuchProfile
	return errors.As(err, &missing)
}
