// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// Every resource in the API is served by a resourceHandler: it picks
// a response media type from the Accept: header, builds the request
// context, decodes PUT and POST bodies into a fresh copy of the
// resource's representation type, dispatches on the method, and maps
// whatever comes back (value, responseCreated, or error) onto an HTTP
// status and a JSON body.

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/sirupsen/logrus"
)

// typeMap lists the media types a client may ask for or send, mapped
// to the canonical type whose codec handles them.
var typeMap = map[string]string{
	"text/json":              restdata.V1JSONMediaType,
	"application/json":       restdata.V1JSONMediaType,
	restdata.JSONMediaType:   restdata.V1JSONMediaType,
	restdata.V1JSONMediaType: restdata.V1JSONMediaType,
}

// wildcards maps the media ranges we honor to the concrete type sent
// back when one of them wins negotiation.
var wildcards = map[string]string{
	"*/*":           restdata.V1JSONMediaType,
	"application/*": restdata.V1JSONMediaType,
	"text/*":        "text/json",
}

// errBadAccept is returned from negotiateResponse() if a quality
// value is out of range.
var errBadAccept = errors.New("Invalid Accept: header")

// errNotAcceptable is returned from negotiateResponse() if the Accept:
// header does not mention any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errNotImplemented is returned from a handler whose backing service
// is not configured in this server.
type errNotImplemented struct {
	Text string
}

func (e errNotImplemented) Error() string {
	if e.Text == "" {
		return "Not implemented"
	}
	return e.Text
}

func (e errNotImplemented) HTTPStatus() int {
	return http.StatusNotImplemented
}

// errMethodNotAllowed flags a request whose method the resource has
// no handler for.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// responseCreated is returned as a value response from handler
// functions that want to indicate that a new resource was created.
type responseCreated struct {
	// Location holds the canonical URL to the newly created resource.
	Location string

	// Body contains the object sent in the body of the response.
	Body interface{}
}

type resourceHandler struct {
	// Representation is the zero value of the type PUT and POST
	// bodies decode into.
	Representation interface{}

	// Context reads an HTTP request and produces a context object.
	Context func(req *http.Request) (*context, error)

	// Get, if non-nil, returns a representation of the resource.
	// It also serves HEAD.
	Get func(*context) (interface{}, error)

	// Put, if non-nil, updates the resource.  The parameter has
	// the same type as Representation.
	Put func(*context, interface{}) (interface{}, error)

	// Post, if non-nil, takes some action on the resource, such as
	// buying a coffee.  The parameter has the same type as
	// Representation; the result may be a responseCreated.
	Post func(*context, interface{}) (interface{}, error)

	// Log receives server-side failures.
	Log logrus.FieldLogger
}

func (h *resourceHandler) log(req *http.Request) logrus.FieldLogger {
	log := h.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})
}

// clientError marks an error raised before the handler ran as a bad
// request, unless it already carries a more specific status.
func clientError(err error) error {
	if restdata.HTTPStatus(err) == http.StatusInternalServerError {
		return restdata.ErrBadRequest{Err: err}
	}
	return err
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	defer func() {
		if recovered := recover(); recovered != nil {
			response := restdata.ErrorResponse{}
			detail := response.FromPanic(recovered)
			h.log(req).WithField("panic", detail).Error("handler panicked")
			resp.Header().Set("Content-Type", restdata.V1JSONMediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			_ = restdata.Encode(resp, response)
		}
	}()

	var out interface{}
	mediaType, err := negotiateResponse(req)
	if err != nil {
		mediaType = restdata.V1JSONMediaType
		err = clientError(err)
	} else {
		out, err = h.dispatch(req)
	}
	h.respond(resp, req, mediaType, out, err)
}

// dispatch builds the context, decodes the body if the method takes
// one, and calls the matching handler function.
func (h *resourceHandler) dispatch(req *http.Request) (interface{}, error) {
	ctx, err := h.Context(req)
	if err != nil {
		return nil, clientError(err)
	}
	var update func(*context, interface{}) (interface{}, error)
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		if h.Get != nil {
			return h.Get(ctx)
		}
	case http.MethodPut:
		update = h.Put
	case http.MethodPost:
		update = h.Post
	}
	if update == nil {
		return nil, errMethodNotAllowed{Method: req.Method}
	}
	in, err := h.decode(req)
	if err != nil {
		return nil, clientError(err)
	}
	return update(ctx, in)
}

// decode reads the request body into a new value of the same type as
// h.Representation.
func (h *resourceHandler) decode(req *http.Request) (interface{}, error) {
	ptr := reflect.New(reflect.TypeOf(h.Representation))
	err := restdata.Decode(req.Header.Get("Content-Type"), req.Body, ptr.Interface())
	return ptr.Elem().Interface(), err
}

// respond writes the status line and body for a handler result.  Once
// the status is written an encoding failure can only be logged.
func (h *resourceHandler) respond(resp http.ResponseWriter, req *http.Request, mediaType string, out interface{}, err error) {
	var status int
	switch created, isCreated := out.(responseCreated); {
	case err != nil:
		var errResp restdata.ErrorResponse
		status, errResp = restdata.NewErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log(req).WithField("err", err).Error("request failed")
		}
		out = errResp
	case out == nil:
		status = http.StatusNoContent
	case isCreated:
		status = http.StatusCreated
		if created.Location != "" {
			resp.Header().Set("Location", created.Location)
		}
		out = created.Body
	default:
		status = http.StatusOK
	}
	if req.Method == http.MethodHead && err == nil {
		out = nil
	}

	if out != nil {
		resp.Header().Set("Content-Type", mediaType)
	}
	resp.WriteHeader(status)
	if out == nil {
		return
	}
	if err := restdata.Encode(resp, out); err != nil {
		h.log(req).WithField("err", err).Warn("could not write response")
	}
}

// mediaRank orders media ranges by specificity: a concrete type we
// know beats a type wildcard, which beats "*/*".  Unknown types rank
// zero and are never chosen.
func mediaRank(mediaType string) int {
	switch {
	case mediaType == "*/*":
		return 1
	case wildcards[mediaType] != "":
		return 2
	case typeMap[mediaType] != "":
		return 3
	}
	return 0
}

// negotiateResponse returns a supported MIME type for the response
// body, following RFC 7231 section 5.3.  The highest quality value
// wins; among equal quality values the most specific range wins, and
// among equally specific ones the first listed.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	best, bestQ, bestRank := "", 0.0, 0
	for _, mediaRange := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(mediaRange))
		if err != nil {
			return "", err
		}
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", err
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		rank := mediaRank(mediaType)
		if rank == 0 {
			continue
		}
		if q > bestQ || (q == bestQ && rank > bestRank) {
			best, bestQ, bestRank = mediaType, q, rank
		}
	}
	if bestQ == 0.0 {
		return "", errNotAcceptable{}
	}
	if concrete, isWildcard := wildcards[best]; isWildcard {
		return concrete, nil
	}
	return best, nil
}
