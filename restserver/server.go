// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/queries"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// API holds the services the REST API publishes.
type API struct {
	// Reader serves cached contract reads.  Required.
	Reader *queries.Reader

	// Profiles is the profile store.  Required.
	Profiles coffee.Profiles

	// Tipping runs writes.  If nil, writes are disabled.
	Tipping *tipping.Service

	// Presence receives visibility beacons.  If nil, the
	// presence resource always reports fully active.
	Presence *realtime.Presence

	// Sender is the signing address, used as the default tipper
	// and registrant.
	Sender string

	// Log receives server-side failures.  Defaults to the
	// logrus standard logger.
	Log logrus.FieldLogger
}

// NewRouter creates a new HTTP handler that processes all CoffeeTip
// requests.  All resources are under the URL path root,
// e.g. /creator/0x....  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(api API) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, api)
	return r
}

// PopulateRouter adds CoffeeTip routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the API under a subpath:
//
//	r := mux.NewRouter()
//	s := r.PathPrefix("/coffeetip").Subrouter()
//	PopulateRouter(s, restserver.API{Reader: reader, Profiles: profiles})
func PopulateRouter(r *mux.Router, api API) {
	if api.Log == nil {
		api.Log = logrus.StandardLogger()
	}
	if api.Presence == nil {
		api.Presence = realtime.NewPresence()
	}
	rest := &restAPI{API: api, Router: r}
	rest.PopulateRouter(r)
}

// restAPI holds the persistent state for the CoffeeTip REST API.
type restAPI struct {
	API
	Router   *mux.Router
	Upgrader websocket.Upgrader
}

// resource registers a resourceHandler at a named path.
func (api *restAPI) resource(r *mux.Router, path, name string, h *resourceHandler) {
	h.Context = api.Context
	h.Log = api.Log
	r.Path(path).Name(name).Handler(h)
}

// PopulateRouter adds all CoffeeTip URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	api.PopulateCreator(r)
	api.PopulateProfile(r)
	api.PopulatePresence(r)
	r.Path("/events").Name("events").Handler(http.HandlerFunc(api.Events))
	api.resource(r, "/", "root", &resourceHandler{
		Representation: restdata.RootData{},
		Get:            api.RootDocument,
	})
}

func (api *restAPI) writesEnabled() bool {
	return api.Tipping != nil && api.Tipping.Chain.WritesEnabled()
}

func (api *restAPI) RootDocument(ctx *context) (interface{}, error) {
	resp := restdata.RootData{
		ContractAddress: api.Reader.Contract(),
		WritesEnabled:   api.writesEnabled(),
	}
	err := buildURLs(api.Router).
		URL(&resp.URL, "root").
		URL(&resp.ProfilesURL, "profiles").
		URL(&resp.ProfileCountURL, "profileCount").
		Template(&resp.ProfileURL, "profile", "username").
		Template(&resp.UsernameURL, "username", "username").
		Template(&resp.CreatorURL, "creator", "address").
		URL(&resp.PresenceURL, "presence").
		URL(&resp.EventsURL, "events").
		Error
	return resp, err
}

// cacheEvent converts a cache notification to its wire form.
func cacheEvent(ev querycache.Event) restdata.Event {
	out := restdata.Event{Kind: ev.Kind.String(), Keys: make([]string, len(ev.Keys))}
	for i, key := range ev.Keys {
		out.Keys[i] = key.String()
	}
	return out
}
