// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package policy centralizes the query cache keys, lifetimes and
// invalidation predicates for CoffeeTip contract reads, so that every
// producer and consumer of cached data agrees on them.
package policy

import (
	"strings"
	"time"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/querycache"
)

// ABIName is the ABI identity component of every contract read key.
const ABIName = "CoffeeTip"

// Contract read functions.
const (
	FnAllCoffees        = "getAllCoffees"
	FnRecentCoffees     = "getRecentCoffees"
	FnBalance           = "getBalance"
	FnCreatorInfo       = "getCreatorInfo"
	FnUsernameAvailable = "isUsernameAvailable"
)

// MaxRecentCoffees is the length cap of the recent coffees list.
const MaxRecentCoffees = 10

// Retry policy for remote reads.
const (
	RetryAttempts = 3
	RetryInitial  = time.Second
	RetryMax      = 30 * time.Second
)

// Class groups data by how often it changes.
type Class int

const (
	// Frequent data, such as coffee lists, changes with every tip.
	Frequent Class = iota

	// Medium data, such as balances, changes less often.
	Medium

	// Rare data, such as network settings and username
	// registrations, almost never changes.
	Rare
)

func (c Class) String() string {
	switch c {
	case Frequent:
		return "frequent"
	case Medium:
		return "medium"
	case Rare:
		return "rare"
	default:
		return "unknown"
	}
}

var durations = map[Class]querycache.Durations{
	Frequent: {Stale: 30 * time.Second, GC: 5 * time.Minute},
	Medium:   {Stale: 60 * time.Second, GC: 10 * time.Minute},
	Rare:     {Stale: 5 * time.Minute, GC: 24 * time.Hour},
}

// Durations returns the cache lifetimes for a data class.
func Durations(c Class) querycache.Durations {
	if d, ok := durations[c]; ok {
		return d
	}
	return durations[Frequent]
}

// ClassOf returns the data class of a contract read function.
func ClassOf(function string) Class {
	switch function {
	case FnAllCoffees, FnRecentCoffees:
		return Frequent
	case FnBalance, FnCreatorInfo:
		return Medium
	default:
		return Rare
	}
}

// Key builds the cache key for a read of function on contract with
// the given canonical argument string.
func Key(contract, function, args string) querycache.Key {
	return querycache.Key{
		Address:  coffee.NormalizeAddress(contract),
		ABI:      ABIName,
		Function: function,
		Args:     args,
	}
}

// AllCoffeesKey is the key of the full coffee list of creator.
func AllCoffeesKey(contract, creator string) querycache.Key {
	return Key(contract, FnAllCoffees, coffee.NormalizeAddress(creator))
}

// RecentCoffeesKey is the key of the recent coffee list of creator.
func RecentCoffeesKey(contract, creator string) querycache.Key {
	return Key(contract, FnRecentCoffees, coffee.NormalizeAddress(creator))
}

// BalanceKey is the key of the balance of owner.
func BalanceKey(contract, owner string) querycache.Key {
	return Key(contract, FnBalance, coffee.NormalizeAddress(owner))
}

// CreatorInfoKey is the key of the registration record of creator.
func CreatorInfoKey(contract, creator string) querycache.Key {
	return Key(contract, FnCreatorInfo, coffee.NormalizeAddress(creator))
}

// UsernameKey is the key of the on-chain availability of username.
func UsernameKey(contract, username string) querycache.Key {
	return Key(contract, FnUsernameAvailable, strings.ToLower(username))
}

// Matches returns a predicate selecting keys for any of the named
// functions.
func Matches(functions ...string) querycache.Predicate {
	set := make(map[string]struct{}, len(functions))
	for _, fn := range functions {
		set[fn] = struct{}{}
	}
	return func(k querycache.Key) bool {
		if k.ABI != ABIName {
			return false
		}
		_, ok := set[k.Function]
		return ok
	}
}

// ForContract narrows pred to keys of one contract address.
func ForContract(contract string, pred querycache.Predicate) querycache.Predicate {
	contract = coffee.NormalizeAddress(contract)
	return func(k querycache.Key) bool {
		return k.Address == contract && pred(k)
	}
}

var (
	// Coffees selects both coffee lists.
	Coffees = Matches(FnAllCoffees, FnRecentCoffees)

	// Balances selects balance reads.
	Balances = Matches(FnBalance)

	// CoffeesAndBalances is what the real-time sync layer
	// invalidates.
	CoffeesAndBalances = Matches(FnAllCoffees, FnRecentCoffees, FnBalance)
)
