// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/gorilla/mux"
)

// PopulatePresence adds the presence beacon route.
func (api *restAPI) PopulatePresence(r *mux.Router) {
	api.resource(r, "/presence", "presence", &resourceHandler{
		Representation: restdata.Presence{},
		Get:            api.PresenceGet,
		Put:            api.PresencePut,
	})
}

func presenceData(state realtime.PresenceState) restdata.Presence {
	return restdata.Presence{
		Visible: &state.Visible,
		Focused: &state.Focused,
		Online:  &state.Online,
	}
}

// PresenceGet returns the current presence state.
func (api *restAPI) PresenceGet(ctx *context) (interface{}, error) {
	return presenceData(api.Presence.State()), nil
}

// PresencePut changes the fields of the presence state that are
// present in the request.
func (api *restAPI) PresencePut(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.Presence)
	if !valid {
		return nil, errUnmarshal
	}
	state := api.Presence.Update(func(state *realtime.PresenceState) {
		if req.Visible != nil {
			state.Visible = *req.Visible
		}
		if req.Focused != nil {
			state.Focused = *req.Focused
		}
		if req.Online != nil {
			state.Online = *req.Online
		}
	})
	return presenceData(state), nil
}
