// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", method, mapError(err))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%v: empty result", method)
	}
	return out, nil
}

func parseAddress(address string) (common.Address, error) {
	address = coffee.NormalizeAddress(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, coffee.ErrInvalid{Field: "address", Reason: "is not a hex address"}
	}
	return common.HexToAddress(address), nil
}

// coffeeList calls one of the list methods.  The contract returns
// coffees in the order they were sent; the result is newest first.
func (g *Gateway) coffeeList(ctx context.Context, method, creator string) ([]coffee.Coffee, error) {
	if !g.hasContract() {
		return []coffee.Coffee{}, nil
	}
	addr, err := parseAddress(creator)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, method, addr)
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(out[0], new([]coffeeTuple)).(*[]coffeeTuple)
	result := make([]coffee.Coffee, len(tuples))
	for i, t := range tuples {
		result[len(tuples)-1-i] = coffee.Coffee{
			From:      hexAddress(t.From),
			Name:      t.Name,
			Message:   t.Message,
			Amount:    bigOrZero(t.Amount),
			Timestamp: bigOrZero(t.Timestamp).Int64(),
		}
	}
	return result, nil
}

func bigOrZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b
}

// AllCoffees returns every coffee sent to creator, newest first.
func (g *Gateway) AllCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	return g.coffeeList(ctx, methodAllCoffees, creator)
}

// RecentCoffees returns the contract's recent coffee list for
// creator, newest first.
func (g *Gateway) RecentCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	return g.coffeeList(ctx, methodRecentCoffees, creator)
}

// Balance returns the withdrawable balance of owner.
func (g *Gateway) Balance(ctx context.Context, owner string) (*big.Int, error) {
	if !g.hasContract() {
		return new(big.Int), nil
	}
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, methodBalance, addr)
	if err != nil {
		return nil, err
	}
	return bigOrZero(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)), nil
}

// CreatorInfo returns the registration record of creator.
func (g *Gateway) CreatorInfo(ctx context.Context, creator string) (coffee.Creator, error) {
	info := coffee.Creator{
		Address:     coffee.NormalizeAddress(creator),
		TotalAmount: new(big.Int),
	}
	if !g.hasContract() {
		return info, nil
	}
	addr, err := parseAddress(creator)
	if err != nil {
		return coffee.Creator{}, err
	}
	out, err := g.call(ctx, methodCreatorInfo, addr)
	if err != nil {
		return coffee.Creator{}, err
	}
	if len(out) != 4 {
		return coffee.Creator{}, fmt.Errorf("%v: %d results", methodCreatorInfo, len(out))
	}
	var raw creatorInfo
	raw.Username = *abi.ConvertType(out[0], new(string)).(*string)
	raw.Registered = *abi.ConvertType(out[1], new(bool)).(*bool)
	raw.TotalCoffees = *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	raw.TotalAmount = *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)

	info.Username = raw.Username
	info.Registered = raw.Registered
	info.TotalCoffees = bigOrZero(raw.TotalCoffees).Int64()
	info.TotalAmount = bigOrZero(raw.TotalAmount)
	return info, nil
}

// UsernameAvailable asks the contract whether username is free.
func (g *Gateway) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !g.hasContract() {
		return false, nil
	}
	out, err := g.call(ctx, methodUsernameFree, strings.ToLower(username))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}
