// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.  Generally JSON encodings of
// these are passed across the wire as the
// application/vnd.diffeo.coffeetip.v1+json MIME type.
//
// # API Usage
//
// HTTP GET the root document at its specified URL.  This will return
// a JSON serialization of the RootData object.  That serialization
// has links to other resources; follow these links, possibly filling
// in template values, to get to other resources.
//
// Many of the URL fields are RFC 6570 URI templates, with a
// {parameter} in curly braces.  If the system is rooted at /, a JSON
// serialization of RootData will include
//
//	{
//	    "profiles_url": "/profiles",
//	    "profile_url": "/profile/{username}",
//	    "creator_url": "/creator/{address}"
//	}
//
// While the URL structure is predictable and formulaic, it is not
// actually part of the API contract.  The only specific guarantee is
// that retrieving the root resource will return a serialization of
// RootData.
//
// # Encoding Considerations
//
// Addresses are lowercase hex strings with a 0x prefix.  Currency
// amounts are decimal strings in the smallest unit (wei), since they
// routinely exceed the range of a JSON number.  Timestamps of
// coffees are integer Unix seconds; profile creation times are RFC
// 3339 strings.
//
// # Errors
//
// Errors are returned as encodings of the ErrorResponse type with a
// failing HTTP status.  The Error field carries a stable code that
// round-trips the coffee package's errors.  For server-side failures
// (5xx statuses) the Message is a fixed generic text; the underlying
// error is logged but never sent to the client.
//
// # Events
//
// The events URL is a websocket.  After the upgrade the server sends
// one JSON-encoded Event per cache change and ignores anything the
// client sends.
package restdata

import (
	"time"
)

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation of this content.
const V1JSONMediaType = "application/vnd.diffeo.coffeetip.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation of this content.
const JSONMediaType = "application/vnd.diffeo.coffeetip+json"

// Resource is a base type for all resources in this module.
type Resource struct {
	// URL points at this resource.
	URL string `json:"url"`
}

// RootData is returned by the root path.
type RootData struct {
	Resource

	// ContractAddress is the contract being served, or empty if
	// none is configured.
	ContractAddress string `json:"contract_address"`

	// WritesEnabled is true if coffees can be bought and
	// creators registered.
	WritesEnabled bool `json:"writes_enabled"`

	// ProfilesURL supports HTTP GET, returning a ProfileList, with
	// an optional "limit" query parameter; and HTTP POST of a
	// Registration, returning the new Profile.
	ProfilesURL string `json:"profiles_url"`

	// ProfileCountURL supports HTTP GET, returning a ProfileCount.
	ProfileCountURL string `json:"profile_count_url"`

	// ProfileURL is a URI template with a single parameter,
	// "username".  It supports HTTP GET, returning a Profile.
	ProfileURL string `json:"profile_url"`

	// UsernameURL is a URI template with a single parameter,
	// "username".  It supports HTTP GET, returning a
	// UsernameStatus.
	UsernameURL string `json:"username_url"`

	// CreatorURL is a URI template with a single parameter,
	// "address".  It supports HTTP GET, returning a Creator.
	CreatorURL string `json:"creator_url"`

	// PresenceURL supports HTTP GET and PUT of a Presence.
	PresenceURL string `json:"presence_url"`

	// EventsURL is a websocket streaming Event values.
	EventsURL string `json:"events_url"`
}

// Creator is the on-chain registration of a tip recipient, with
// links to its coffees and balance.
type Creator struct {
	Resource
	Address      string `json:"address"`
	Username     string `json:"username"`
	Registered   bool   `json:"registered"`
	TotalCoffees int64  `json:"total_coffees"`
	TotalAmount  string `json:"total_amount"`

	// CoffeesURL supports HTTP GET, returning a CoffeeList of
	// every coffee, and HTTP POST of a Tip, returning a
	// TipResult.
	CoffeesURL string `json:"coffees_url"`

	// RecentCoffeesURL supports HTTP GET, returning a CoffeeList
	// of the most recent coffees.
	RecentCoffeesURL string `json:"recent_coffees_url"`

	// BalanceURL supports HTTP GET, returning a Balance.
	BalanceURL string `json:"balance_url"`

	// ProfileURL supports HTTP GET, returning the creator's
	// Profile if one exists.
	ProfileURL string `json:"profile_url"`
}

// Coffee is one tip.  Optimistic coffees have been submitted but not
// yet confirmed.
type Coffee struct {
	From       string `json:"from"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	Amount     string `json:"amount"`
	Timestamp  int64  `json:"timestamp"`
	Optimistic bool   `json:"optimistic,omitempty"`
	LocalID    string `json:"local_id,omitempty"`
}

// CoffeeList is a list of coffees, newest first.
type CoffeeList struct {
	Coffees []Coffee `json:"coffees"`
}

// Balance is the withdrawable balance of an address.
type Balance struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// Tip is posted to a creator's coffees URL to buy a coffee.  If From
// is empty the server's signing address is shown.
type Tip struct {
	From    string `json:"from,omitempty"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Amount  string `json:"amount"`
}

// TipResult is returned after a tip is mined.
type TipResult struct {
	TxHash string `json:"tx_hash"`
	Coffee Coffee `json:"coffee"`
}

// Profile is the off-chain profile of a creator.
type Profile struct {
	Resource
	Address     string            `json:"address"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Links       map[string]string `json:"links,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`

	// CreatorURL points at the on-chain Creator record.
	CreatorURL string `json:"creator_url"`
}

// ProfileList is a list of profiles, newest first.
type ProfileList struct {
	Profiles []Profile `json:"profiles"`
}

// ProfileCount is the total number of profiles.
type ProfileCount struct {
	Count int `json:"count"`
}

// Registration is posted to the profiles URL to register a creator
// on chain and create its profile.  If Address is empty the server's
// signing address is used.
type Registration struct {
	Address     string            `json:"address,omitempty"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Links       map[string]string `json:"links,omitempty"`
}

// UsernameStatus reports whether a username can be registered.
type UsernameStatus struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// Presence is the state of the page the user is looking at.  When
// PUT, null fields are left unchanged; GET returns every field.
type Presence struct {
	Visible *bool `json:"visible"`
	Focused *bool `json:"focused"`
	Online  *bool `json:"online"`
}

// Event is sent over the events websocket when cached data changes.
type Event struct {
	// Kind is "invalidated", "updated" or "removed".
	Kind string `json:"kind"`

	// Keys name the affected cache entries.
	Keys []string `json:"keys"`
}

// ErrorResponse is returned from any failing request.
type ErrorResponse struct {
	// Error is a fixed code identifying the error, such as
	// "ErrUsernameTaken", or "error" if the error has no more
	// specific code.
	Error string `json:"error"`

	// Message is human-readable text.
	Message string `json:"message,omitempty"`

	// Value is the value associated with some errors, such as
	// the key of a missing profile or the name of an invalid
	// field.
	Value string `json:"value,omitempty"`

	// Reason explains an invalid field.
	Reason string `json:"reason,omitempty"`
}
