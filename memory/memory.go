// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides in-process, in-memory implementations of
// the CoffeeTip gateways: a profile store and a contract.  There is
// no persistence and no sharing between processes.
//
// This is mostly intended as a simple reference implementation that
// can be used for testing, including in-process testing of
// higher-level components, and for running the daemon without a
// database or a node.  It is tuned for correctness, not performance.
package memory

import "github.com/diffeo/go-coffeetip/coffee"

var (
	_ coffee.Profiles = (*Profiles)(nil)
	_ coffee.Chain    = (*Chain)(nil)
	_ coffee.Writer   = (*Chain)(nil)
)
