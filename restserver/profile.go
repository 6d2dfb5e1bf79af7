// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/gorilla/mux"
)

// DefaultProfileLimit is the number of profiles listed when the
// request gives no limit.
const DefaultProfileLimit = 20

// PopulateProfile adds the profile routes.
func (api *restAPI) PopulateProfile(r *mux.Router) {
	api.resource(r, "/profiles", "profiles", &resourceHandler{
		Representation: restdata.Registration{},
		Get:            api.ProfileList,
		Post:           api.ProfilePost,
	})
	api.resource(r, "/profiles/count", "profileCount", &resourceHandler{
		Representation: restdata.ProfileCount{},
		Get:            api.ProfileCountGet,
	})
	api.resource(r, "/profile/{username}", "profile", &resourceHandler{
		Representation: restdata.Profile{},
		Get:            api.ProfileGet,
	})
	api.resource(r, "/username/{username}", "username", &resourceHandler{
		Representation: restdata.UsernameStatus{},
		Get:            api.UsernameGet,
	})
}

func (api *restAPI) fillProfile(p coffee.Profile, result *restdata.Profile) error {
	*result = restdata.FromProfile(p)
	return buildURLs(api.Router, "username", p.Username, "address", coffee.NormalizeAddress(p.Address)).
		URL(&result.URL, "profile").
		URL(&result.CreatorURL, "creator").
		Error
}

// ProfileList returns the newest profiles.
func (api *restAPI) ProfileList(ctx *context) (interface{}, error) {
	limit, err := ctx.IntParam("limit", DefaultProfileLimit)
	if err != nil {
		return nil, err
	}
	profiles, err := api.Profiles.Recent(ctx.Ctx, limit)
	if err != nil {
		return nil, err
	}
	result := restdata.ProfileList{Profiles: make([]restdata.Profile, len(profiles))}
	for i, p := range profiles {
		err = api.fillProfile(p, &result.Profiles[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ProfilePost registers a creator on chain and creates its profile.
func (api *restAPI) ProfilePost(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.Registration)
	if !valid {
		return nil, errUnmarshal
	}
	if !api.writesEnabled() {
		return nil, coffee.ErrWritesDisabled
	}
	address := req.Address
	if address == "" {
		address = api.Sender
	}
	if err := coffee.ValidateAddress("address", address); err != nil {
		return nil, err
	}
	profile, err := api.Tipping.Register(ctx.Ctx, tipping.Registration{
		Address:     address,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Links:       req.Links,
	})
	if err != nil {
		return nil, err
	}
	result := restdata.Profile{}
	err = api.fillProfile(profile, &result)
	if err != nil {
		return nil, err
	}
	return responseCreated{
		Location: result.URL,
		Body:     result,
	}, nil
}

// ProfileCountGet returns the number of profiles.
func (api *restAPI) ProfileCountGet(ctx *context) (interface{}, error) {
	count, err := api.Profiles.Count(ctx.Ctx)
	if err != nil {
		return nil, err
	}
	return restdata.ProfileCount{Count: count}, nil
}

// ProfileGet returns the profile with a username.
func (api *restAPI) ProfileGet(ctx *context) (interface{}, error) {
	profile, err := api.Profiles.ByUsername(ctx.Ctx, ctx.Username)
	if err != nil {
		return nil, err
	}
	result := restdata.Profile{}
	err = api.fillProfile(profile, &result)
	return result, err
}

// UsernameGet reports whether a username is free both in the
// profile store and on chain.  Malformed usernames are never
// available.
func (api *restAPI) UsernameGet(ctx *context) (interface{}, error) {
	result := restdata.UsernameStatus{Username: ctx.Username}
	if coffee.ValidateUsername(ctx.Username) != nil {
		return result, nil
	}
	free, err := api.Profiles.UsernameAvailable(ctx.Ctx, ctx.Username)
	if err == nil && free {
		free, err = api.Reader.UsernameAvailable(ctx.Ctx, ctx.Username)
	}
	if err != nil {
		return nil, err
	}
	result.Available = free
	return result, nil
}
