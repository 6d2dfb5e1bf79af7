// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a profile
// store based on command-line flags.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diffeo/go-coffeetip/cache"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/memory"
	"github.com/diffeo/go-coffeetip/postgres"
)

// Backend describes user-visible parameters to store profile data.
// This implements the flag.Value interface, and so a typical use is
//
//	func main() {
//	    backend := backend.Backend{Implementation: "memory"}
//	    flag.Var(&backend, "backend", "impl:address of profile storage")
//	    flag.Parse()
//	    profiles, err := backend.Profiles()
//	}
type Backend struct {
	// Implementation holds the name of the implementation;
	// "memory" or "postgres".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string

	// CacheSize, if positive, wraps the store in an LRU cache of
	// that many profiles per index.
	CacheSize int
}

// Implementations lists the known implementation names.
var Implementations = []string{"memory", "postgres"}

// Profiles creates a new profile store.  This generally should be
// only called once.  If the backend has in-process state, such as a
// database connection pool or an in-memory store, calling this
// multiple times will create multiple copies of that state.
func (b *Backend) Profiles() (coffee.Profiles, error) {
	var (
		profiles coffee.Profiles
		err      error
	)
	switch b.Implementation {
	case "memory":
		profiles = memory.NewProfiles()
	case "postgres":
		profiles, err = postgres.New(b.Address)
	default:
		err = errors.New("unknown profile backend " + b.Implementation)
	}
	if err != nil {
		return nil, err
	}
	if b.CacheSize > 0 {
		profiles = cache.New(profiles, b.CacheSize)
	}
	return profiles, nil
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Note that it does not
// attempt to validate the b.Address part of the string or to
// actually make a connection.
func (b *Backend) Set(param string) error {
	parts := strings.SplitN(param, ":", 2)
	impl, address := parts[0], ""
	if len(parts) == 2 {
		address = parts[1]
	}
	if impl == "" {
		return errors.New("must specify a backend type")
	}
	known := false
	for _, name := range Implementations {
		known = known || name == impl
	}
	if !known {
		return fmt.Errorf("unknown profile backend %q (want one of %v)", impl, strings.Join(Implementations, ", "))
	}
	b.Implementation = impl
	b.Address = address
	return nil
}
