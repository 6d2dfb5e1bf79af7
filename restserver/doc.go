// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes the CoffeeTip read and write flows as a
// REST service.  The restclient package is a matching client.
//
// The complete REST API is defined in the restdata package.  In
// particular, note that the URLs described here are not actually part
// of the API.
//
// # HTTP Considerations
//
// Clients should use the standard HTTP Accept: header to request a
// specific format.  See "MIME Types" below.
//
// This interface does not support HTTP caching or authentication
// headers.  Contract reads are served from the query cache, so a GET
// may return data up to one stale window old; add ?refresh=1 to a
// coffee list to force a refetch.
//
// # MIME Types
//
// This interface understands MIME types as follows:
//
//	application/vnd.diffeo.coffeetip.v1+json
//
// JSON representation of version 1 of this interface.
//
//	application/vnd.diffeo.coffeetip+json
//	application/json
//	text/json
//
// JSON representation of latest version of this interface.
//
// # URL Scheme
//
// Creators are addressed by their hex wallet address, and profiles
// by username.  The following URLs are defined:
//
//	/
//	/creator/{address}
//	/creator/{address}/coffees
//	/creator/{address}/coffees/recent
//	/creator/{address}/balance
//	/creator/{address}/profile
//	/profiles
//	/profiles/count
//	/profile/{username}
//	/username/{username}
//	/presence
//	/events
package restserver
