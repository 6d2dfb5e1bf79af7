// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/gorilla/mux"
)

// PopulateCreator adds the per-creator routes.
func (api *restAPI) PopulateCreator(r *mux.Router) {
	api.resource(r, "/creator/{address}", "creator", &resourceHandler{
		Representation: restdata.Creator{},
		Get:            api.CreatorGet,
	})
	api.resource(r, "/creator/{address}/coffees", "coffees", &resourceHandler{
		Representation: restdata.Tip{},
		Get:            api.CoffeesGet,
		Post:           api.CoffeesPost,
	})
	api.resource(r, "/creator/{address}/coffees/recent", "recentCoffees", &resourceHandler{
		Representation: restdata.CoffeeList{},
		Get:            api.RecentCoffeesGet,
	})
	api.resource(r, "/creator/{address}/balance", "balance", &resourceHandler{
		Representation: restdata.Balance{},
		Get:            api.BalanceGet,
	})
	api.resource(r, "/creator/{address}/profile", "creatorProfile", &resourceHandler{
		Representation: restdata.Profile{},
		Get:            api.CreatorProfileGet,
	})
}

func (api *restAPI) fillCreator(c coffee.Creator, result *restdata.Creator) error {
	result.Address = coffee.NormalizeAddress(c.Address)
	result.Username = c.Username
	result.Registered = c.Registered
	result.TotalCoffees = c.TotalCoffees
	result.TotalAmount = restdata.FormatAmount(c.TotalAmount)
	return buildURLs(api.Router, "address", result.Address).
		URL(&result.URL, "creator").
		URL(&result.CoffeesURL, "coffees").
		URL(&result.RecentCoffeesURL, "recentCoffees").
		URL(&result.BalanceURL, "balance").
		URL(&result.ProfileURL, "creatorProfile").
		Error
}

// CreatorGet returns the on-chain registration of a creator.
func (api *restAPI) CreatorGet(ctx *context) (interface{}, error) {
	c, err := api.Reader.CreatorInfo(ctx.Ctx, ctx.Address)
	if err != nil {
		return nil, err
	}
	if c.Address == "" {
		c.Address = ctx.Address
	}
	result := restdata.Creator{}
	err = api.fillCreator(c, &result)
	return result, err
}

// refresh drops the cached coffee lists for the context's creator if
// the "refresh" query parameter asks for it.
func (api *restAPI) refresh(ctx *context) {
	if !ctx.BoolParam("refresh", false) {
		return
	}
	contract := api.Reader.Contract()
	all := policy.AllCoffeesKey(contract, ctx.Address)
	recent := policy.RecentCoffeesKey(contract, ctx.Address)
	api.Reader.Cache.Invalidate(func(key querycache.Key) bool {
		return key == all || key == recent
	})
}

// CoffeesGet returns every coffee sent to a creator, newest first.
func (api *restAPI) CoffeesGet(ctx *context) (interface{}, error) {
	api.refresh(ctx)
	list, err := api.Reader.AllCoffees(ctx.Ctx, ctx.Address)
	if err != nil {
		return nil, err
	}
	return restdata.FromCoffees(list), nil
}

// CoffeesPost buys a coffee for a creator, waiting for the
// transaction to be mined.
func (api *restAPI) CoffeesPost(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.Tip)
	if !valid {
		return nil, errUnmarshal
	}
	if !api.writesEnabled() {
		return nil, coffee.ErrWritesDisabled
	}
	amount, err := restdata.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	from := req.From
	if from == "" {
		from = api.Sender
	}
	receipt, err := api.Tipping.BuyCoffee(ctx.Ctx, tipping.Tip{
		Creator: ctx.Address,
		From:    from,
		Name:    req.Name,
		Message: req.Message,
		Amount:  amount,
	})
	if err != nil {
		return nil, err
	}
	return restdata.TipResult{
		TxHash: receipt.TxHash,
		Coffee: restdata.FromCoffee(receipt.Coffee),
	}, nil
}

// RecentCoffeesGet returns the most recent coffees sent to a creator.
func (api *restAPI) RecentCoffeesGet(ctx *context) (interface{}, error) {
	api.refresh(ctx)
	list, err := api.Reader.RecentCoffees(ctx.Ctx, ctx.Address)
	if err != nil {
		return nil, err
	}
	return restdata.FromCoffees(list), nil
}

// BalanceGet returns the withdrawable balance of an address.
func (api *restAPI) BalanceGet(ctx *context) (interface{}, error) {
	balance, err := api.Reader.Balance(ctx.Ctx, ctx.Address)
	if err != nil {
		return nil, err
	}
	return restdata.Balance{
		Address: ctx.Address,
		Balance: restdata.FormatAmount(balance),
	}, nil
}

// CreatorProfileGet returns the off-chain profile of a creator.
func (api *restAPI) CreatorProfileGet(ctx *context) (interface{}, error) {
	profile, err := api.Profiles.ByAddress(ctx.Ctx, ctx.Address)
	if err != nil {
		return nil, err
	}
	result := restdata.Profile{}
	err = api.fillProfile(profile, &result)
	return result, err
}
