// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides an HTTP REST client that talks to the
// matching server in the "restserver" package.  Its read methods
// satisfy coffee.Chain, so a remote daemon can stand in for a direct
// node connection.
//
// The server in github.com/diffeo/go-coffeetip/cmd/coffeetipd can
// run a compatible REST server.  Call New() with the base URL of that
// service; for instance,
//
//	c, err := restclient.New(ctx, "http://localhost:5980/")
package restclient

import (
	"context"
	"errors"
	"math/big"
	"net/url"
	"strconv"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/restdata"
)

// Client speaks to a CoffeeTip REST server.
type Client struct {
	resource
	Representation restdata.RootData
}

// New creates a new client and fetches the server's root document.
func New(ctx context.Context, baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("restclient: empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{resource: resource{URL: u}}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh reloads the root document.
func (c *Client) Refresh(ctx context.Context) error {
	c.Representation = restdata.RootData{}
	return c.Get(ctx, &c.Representation)
}

// ContractAddress returns the contract the server reads, as of the
// last Refresh.
func (c *Client) ContractAddress() string {
	return c.Representation.ContractAddress
}

// WritesEnabled reports whether the server accepts tips and
// registrations, as of the last Refresh.
func (c *Client) WritesEnabled() bool {
	return c.Representation.WritesEnabled
}

// Creator fetches the creator document for address.
func (c *Client) Creator(ctx context.Context, address string) (restdata.Creator, error) {
	var creator restdata.Creator
	err := c.GetFrom(ctx, c.Representation.CreatorURL, map[string]interface{}{"address": address}, &creator)
	return creator, err
}

// CreatorInfo returns the on-chain registration of creator.
func (c *Client) CreatorInfo(ctx context.Context, address string) (coffee.Creator, error) {
	creator, err := c.Creator(ctx, address)
	if err != nil {
		return coffee.Creator{}, err
	}
	total, err := restdata.ParseAmount(creator.TotalAmount)
	if err != nil {
		return coffee.Creator{}, err
	}
	return coffee.Creator{
		Address:      creator.Address,
		Username:     creator.Username,
		Registered:   creator.Registered,
		TotalCoffees: creator.TotalCoffees,
		TotalAmount:  total,
	}, nil
}

func (c *Client) coffees(ctx context.Context, address string, recent bool) ([]coffee.Coffee, error) {
	creator, err := c.Creator(ctx, address)
	if err != nil {
		return nil, err
	}
	link := creator.CoffeesURL
	if recent {
		link = creator.RecentCoffeesURL
	}
	var list restdata.CoffeeList
	if err := c.GetFrom(ctx, link, nil, &list); err != nil {
		return nil, err
	}
	result := make([]coffee.Coffee, len(list.Coffees))
	for i, item := range list.Coffees {
		result[i] = item.ToCoffee()
	}
	return result, nil
}

// AllCoffees returns every coffee sent to creator, newest first.
func (c *Client) AllCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	return c.coffees(ctx, creator, false)
}

// RecentCoffees returns the most recent coffees sent to creator.
func (c *Client) RecentCoffees(ctx context.Context, creator string) ([]coffee.Coffee, error) {
	return c.coffees(ctx, creator, true)
}

// Balance returns the withdrawable balance of owner.
func (c *Client) Balance(ctx context.Context, owner string) (*big.Int, error) {
	creator, err := c.Creator(ctx, owner)
	if err != nil {
		return nil, err
	}
	var balance restdata.Balance
	if err := c.GetFrom(ctx, creator.BalanceURL, nil, &balance); err != nil {
		return nil, err
	}
	return restdata.ParseAmount(balance.Balance)
}

// UsernameAvailable reports whether username can still be
// registered, both on chain and in the profile store.
func (c *Client) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var status restdata.UsernameStatus
	err := c.GetFrom(ctx, c.Representation.UsernameURL, map[string]interface{}{"username": username}, &status)
	return status.Available, err
}

// BuyCoffee tips creator and waits for the transaction to be mined.
func (c *Client) BuyCoffee(ctx context.Context, creator string, tip restdata.Tip) (restdata.TipResult, error) {
	var result restdata.TipResult
	doc, err := c.Creator(ctx, creator)
	if err == nil {
		err = c.PostTo(ctx, doc.CoffeesURL, nil, tip, &result)
	}
	return result, err
}

// Register registers a creator and creates its profile.
func (c *Client) Register(ctx context.Context, reg restdata.Registration) (coffee.Profile, error) {
	var profile restdata.Profile
	err := c.PostTo(ctx, c.Representation.ProfilesURL, nil, reg, &profile)
	return profile.ToProfile(), err
}

// ByUsername returns the profile with a username.
func (c *Client) ByUsername(ctx context.Context, username string) (coffee.Profile, error) {
	var profile restdata.Profile
	err := c.GetFrom(ctx, c.Representation.ProfileURL, map[string]interface{}{"username": username}, &profile)
	return profile.ToProfile(), err
}

// ByAddress returns the profile of a creator address.
func (c *Client) ByAddress(ctx context.Context, address string) (coffee.Profile, error) {
	var profile restdata.Profile
	doc, err := c.Creator(ctx, address)
	if err == nil {
		err = c.GetFrom(ctx, doc.ProfileURL, nil, &profile)
	}
	return profile.ToProfile(), err
}

// Recent returns up to limit profiles, newest first.  A limit of
// zero uses the server's default.
func (c *Client) Recent(ctx context.Context, limit int) ([]coffee.Profile, error) {
	template := c.Representation.ProfilesURL + "{?limit}"
	vars := map[string]interface{}{}
	if limit > 0 {
		vars["limit"] = strconv.Itoa(limit)
	}
	var list restdata.ProfileList
	if err := c.GetFrom(ctx, template, vars, &list); err != nil {
		return nil, err
	}
	result := make([]coffee.Profile, len(list.Profiles))
	for i, p := range list.Profiles {
		result[i] = p.ToProfile()
	}
	return result, nil
}

// Count returns the number of profiles.
func (c *Client) Count(ctx context.Context) (int, error) {
	var count restdata.ProfileCount
	err := c.GetFrom(ctx, c.Representation.ProfileCountURL, nil, &count)
	return count.Count, err
}

// Presence returns the server's presence state.
func (c *Client) Presence(ctx context.Context) (restdata.Presence, error) {
	var presence restdata.Presence
	err := c.GetFrom(ctx, c.Representation.PresenceURL, nil, &presence)
	return presence, err
}

// SetPresence changes the non-nil fields of the server's presence
// state and returns the new state.
func (c *Client) SetPresence(ctx context.Context, presence restdata.Presence) (restdata.Presence, error) {
	var result restdata.Presence
	err := c.PutTo(ctx, c.Representation.PresenceURL, nil, presence, &result)
	return result, err
}
