// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package realtime decides when cached coffee and balance data
// should be refetched.
//
// Four independent sources feed it: contract events, new blocks,
// presence changes (the user coming back to the page, or the network
// coming back), and a periodic timer.  Every source sends a Signal
// to a single Coordinator, which debounces and rate-limits them into
// invalidations of the query cache.
package realtime

// Signal names the source of an invalidation request.
type Signal int

const (
	// SignalEvent is a contract event.
	SignalEvent Signal = iota

	// SignalBlock is a new block.
	SignalBlock

	// SignalFocus is the page regaining focus.
	SignalFocus

	// SignalVisible is the page becoming visible.
	SignalVisible

	// SignalOnline is network connectivity being restored.
	SignalOnline

	// SignalTimer is the periodic refresh timer.
	SignalTimer

	// SignalTransaction is a locally submitted transaction
	// completing.
	SignalTransaction
)

func (s Signal) String() string {
	switch s {
	case SignalEvent:
		return "event"
	case SignalBlock:
		return "block"
	case SignalFocus:
		return "focus"
	case SignalVisible:
		return "visible"
	case SignalOnline:
		return "online"
	case SignalTimer:
		return "timer"
	case SignalTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Requester accepts invalidation requests.  *Coordinator and *Sync
// implement it.
type Requester interface {
	Request(Signal)
}
