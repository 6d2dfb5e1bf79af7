// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	stdcontext "context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/gorilla/mux"
)

// errUnmarshal is returned if the put/post contract is violated and
// a handler function is passed the wrong type.
var errUnmarshal = restdata.ErrBadRequest{
	Err: errors.New("Invalid input format"),
}

// context holds all of the information and objects that can be extracted
// from URL parameters.
type context struct {
	// Ctx is the request's context, passed to every gateway call.
	Ctx         stdcontext.Context
	Address     string
	Username    string
	QueryParams url.Values
}

func (api *restAPI) Context(req *http.Request) (ctx *context, err error) {
	ctx = &context{Ctx: req.Context()}
	ctx.QueryParams = req.URL.Query()
	vars := mux.Vars(req)

	if address, present := vars["address"]; present {
		err = coffee.ValidateAddress("address", address)
		if err == nil {
			ctx.Address = coffee.NormalizeAddress(address)
		}
	}

	if username, present := vars["username"]; present && err == nil {
		ctx.Username = strings.ToLower(username)
	}

	return
}

// BoolParam looks at ctx.QueryParams for a parameter named name.  If
// it has a normally-truthy value (1, on, false, no, ...) then return
// that value.  Otherwise (empty string, foo, ...) return def.
func (ctx *context) BoolParam(name string, def bool) bool {
	switch strings.ToLower(ctx.QueryParams.Get(name)) {
	case "0", "f", "n", "false", "off", "no":
		return false
	case "1", "t", "y", "true", "on", "yes":
		return true
	default:
		return def
	}
}

// IntParam looks at ctx.QueryParams for a positive integer parameter
// named name, returning def if it is absent.
func (ctx *context) IntParam(name string, def int) (int, error) {
	value := ctx.QueryParams.Get(name)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		return 0, coffee.ErrInvalid{Field: name, Reason: err.Error()}
	}
	return n, nil
}
