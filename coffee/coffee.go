// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package coffee defines the data model and the remote gateway
// interfaces shared by the CoffeeTip packages.
//
// There are two remote gateways.  The chain gateway reads from and
// writes to the CoffeeTip smart contract; it is implemented by package
// chain against a real node, and by package memory for tests and local
// development.  The profile gateway stores creator profiles keyed by
// wallet address and username; it is implemented by packages memory
// and postgres, and can be wrapped by package cache.
//
// Addresses are carried as hex strings.  Implementations normalize
// them to lowercase before comparing or storing them; see
// NormalizeAddress.
package coffee

import (
	"context"
	"math/big"
	"strings"
	"time"
)

// Coffee is one tip recorded by the contract.
type Coffee struct {
	// From is the hex address of the sender.
	From string `json:"from"`

	// Name is the display name the sender chose.
	Name string `json:"name"`

	// Message is the free-form message attached to the tip.
	Message string `json:"message"`

	// Amount is the tip value in the smallest currency unit (wei).
	Amount *big.Int `json:"amount"`

	// Timestamp is the block time of the tip, in seconds since the
	// epoch.  Optimistic records use local wall-clock time.
	Timestamp int64 `json:"timestamp"`

	// Optimistic is set on records that were inserted locally
	// before the underlying transaction was confirmed.
	Optimistic bool `json:"optimistic"`

	// LocalID identifies an optimistic record.  It is empty for
	// records read from the chain.
	LocalID string `json:"local_id,omitempty"`
}

// Creator is the on-chain registration of a tip recipient.
type Creator struct {
	Address      string   `json:"address"`
	Username     string   `json:"username"`
	Registered   bool     `json:"registered"`
	TotalCoffees int64    `json:"total_coffees"`
	TotalAmount  *big.Int `json:"total_amount"`
}

// Profile is the off-chain profile of a creator.
type Profile struct {
	Address     string            `json:"address"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Links       map[string]string `json:"links"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Chain is the read side of the CoffeeTip contract.  If no contract
// address is configured, every read returns an empty or zero result
// and a nil error.
type Chain interface {
	// ContractAddress returns the normalized contract address, or
	// an empty string if none is configured.
	ContractAddress() string

	// AllCoffees returns every coffee sent to creator, newest
	// first.
	AllCoffees(ctx context.Context, creator string) ([]Coffee, error)

	// RecentCoffees returns the most recent coffees sent to
	// creator, newest first.
	RecentCoffees(ctx context.Context, creator string) ([]Coffee, error)

	// Balance returns the withdrawable balance of owner.
	Balance(ctx context.Context, owner string) (*big.Int, error)

	// CreatorInfo returns the registration record for creator.
	// An unregistered address returns a Creator with Registered
	// false.
	CreatorInfo(ctx context.Context, creator string) (Creator, error)

	// UsernameAvailable reports whether username can still be
	// registered on chain.
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

// Writer is the write side of the CoffeeTip contract.  Signing is
// handled by whatever key material the implementation was built with.
type Writer interface {
	// WritesEnabled reports whether transactions may be
	// submitted at all.
	WritesEnabled() bool

	// BuyCoffee submits a tip of amount to creator and returns the
	// transaction hash.
	BuyCoffee(ctx context.Context, creator, name, message string, amount *big.Int) (string, error)

	// RegisterCreator submits a username registration for the
	// signing address and returns the transaction hash.
	RegisterCreator(ctx context.Context, username string) (string, error)

	// WaitMined blocks until the transaction is included.  It
	// returns ErrTransactionFailed if the transaction reverted.
	WaitMined(ctx context.Context, txHash string) error
}

// Profiles is the hosted profile database.
type Profiles interface {
	// ByAddress returns the profile for a wallet address, or
	// ErrNoSuchProfile.
	ByAddress(ctx context.Context, address string) (Profile, error)

	// ByUsername returns the profile with a username, or
	// ErrNoSuchProfile.
	ByUsername(ctx context.Context, username string) (Profile, error)

	// Create stores a new profile.  It returns ErrProfileExists if
	// the address already has a profile and ErrUsernameTaken if
	// the username is in use.  The returned profile has CreatedAt
	// filled in.
	Create(ctx context.Context, profile Profile) (Profile, error)

	// UsernameAvailable reports whether no profile uses username.
	UsernameAvailable(ctx context.Context, username string) (bool, error)

	// Recent returns up to limit profiles, newest first.
	Recent(ctx context.Context, limit int) ([]Profile, error)

	// Count returns the total number of profiles.
	Count(ctx context.Context) (int, error)
}

// NormalizeAddress returns the lowercase, 0x-prefixed form of a hex
// address.  It does not validate the address.
func NormalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return address
}

// CopyCoffees returns a copy of a coffee list that shares no Amount
// pointers with the original.
func CopyCoffees(in []Coffee) []Coffee {
	if in == nil {
		return nil
	}
	out := make([]Coffee, len(in))
	for i, c := range in {
		out[i] = c
		if c.Amount != nil {
			out[i].Amount = new(big.Int).Set(c.Amount)
		}
	}
	return out
}

// Event is a coffee observed on chain, as delivered by an event
// watcher.
type Event struct {
	// Creator is the normalized address of the recipient.
	Creator string `json:"creator"`

	// Coffee is the record as the contract logged it.
	Coffee Coffee `json:"coffee"`

	// TxHash is the hash of the transaction that emitted the
	// event.
	TxHash string `json:"tx_hash"`

	// Block is the number of the block containing the event.
	Block uint64 `json:"block"`
}
