// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package queries provides cached reads of the CoffeeTip contract.
// Every read goes through the shared query cache under the key and
// lifetimes chosen by package policy, so optimistic updates and
// invalidations made elsewhere are visible here.
package queries

import (
	"context"
	"fmt"
	"math/big"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/querycache"
)

// Reader reads contract data through a query cache.  If the chain
// has no contract address configured, every read returns an empty or
// zero result without touching the cache.
type Reader struct {
	Cache *querycache.Cache
	Chain coffee.Chain
}

// New creates a new reader.
func New(cache *querycache.Cache, chain coffee.Chain) *Reader {
	return &Reader{Cache: cache, Chain: chain}
}

// Contract returns the configured contract address.
func (r *Reader) Contract() string {
	return r.Chain.ContractAddress()
}

func (r *Reader) fetch(ctx context.Context, key querycache.Key, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	return r.Cache.Fetch(ctx, key, policy.Durations(policy.ClassOf(key.Function)), fetch)
}

// AllCoffees returns every coffee sent to creator, newest first,
// including optimistic records.
func (r *Reader) AllCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	contract := r.Contract()
	if contract == "" {
		return []coffee.Coffee{}, nil
	}
	v, err := r.fetch(ctx, policy.AllCoffeesKey(contract, creator), func(ctx context.Context) (interface{}, error) {
		return r.Chain.AllCoffees(ctx, creator)
	})
	if err != nil {
		return nil, err
	}
	return coffeeList(v)
}

// RecentCoffees returns the most recent coffees sent to creator,
// newest first, at most policy.MaxRecentCoffees of them.
func (r *Reader) RecentCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	contract := r.Contract()
	if contract == "" {
		return []coffee.Coffee{}, nil
	}
	v, err := r.fetch(ctx, policy.RecentCoffeesKey(contract, creator), func(ctx context.Context) (interface{}, error) {
		list, err := r.Chain.RecentCoffees(ctx, creator)
		if err != nil {
			return nil, err
		}
		if len(list) > policy.MaxRecentCoffees {
			list = list[:policy.MaxRecentCoffees]
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return coffeeList(v)
}

// Balance returns the withdrawable balance of owner.
func (r *Reader) Balance(ctx context.Context, owner string) (*big.Int, error) {
	contract := r.Contract()
	if contract == "" {
		return new(big.Int), nil
	}
	v, err := r.fetch(ctx, policy.BalanceKey(contract, owner), func(ctx context.Context) (interface{}, error) {
		return r.Chain.Balance(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("cached balance has type %T", v)
	}
	return new(big.Int).Set(b), nil
}

// CreatorInfo returns the on-chain registration of creator.
func (r *Reader) CreatorInfo(ctx context.Context, creator string) (coffee.Creator, error) {
	contract := r.Contract()
	if contract == "" {
		return coffee.Creator{
			Address:     coffee.NormalizeAddress(creator),
			TotalAmount: new(big.Int),
		}, nil
	}
	v, err := r.fetch(ctx, policy.CreatorInfoKey(contract, creator), func(ctx context.Context) (interface{}, error) {
		return r.Chain.CreatorInfo(ctx, creator)
	})
	if err != nil {
		return coffee.Creator{}, err
	}
	c, ok := v.(coffee.Creator)
	if !ok {
		return coffee.Creator{}, fmt.Errorf("cached creator has type %T", v)
	}
	if c.TotalAmount != nil {
		c.TotalAmount = new(big.Int).Set(c.TotalAmount)
	}
	return c, nil
}

// UsernameAvailable reports whether username is still free on chain.
// With no contract configured it returns false.
func (r *Reader) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	contract := r.Contract()
	if contract == "" {
		return false, nil
	}
	v, err := r.fetch(ctx, policy.UsernameKey(contract, username), func(ctx context.Context) (interface{}, error) {
		return r.Chain.UsernameAvailable(ctx, username)
	})
	if err != nil {
		return false, err
	}
	ok, isBool := v.(bool)
	if !isBool {
		return false, fmt.Errorf("cached availability has type %T", v)
	}
	return ok, nil
}

func coffeeList(v interface{}) ([]coffee.Coffee, error) {
	list, ok := v.([]coffee.Coffee)
	if !ok {
		return nil, fmt.Errorf("cached coffee list has type %T", v)
	}
	if list == nil {
		return []coffee.Coffee{}, nil
	}
	return coffee.CopyCoffees(list), nil
}
