// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/diffeo/go-coffeetip/coffee"
)

// GenericMessage is the Message of every 5xx error response.
const GenericMessage = "Something went wrong; please try again"

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// sentinels are the coffee package's fixed errors, by code.
var sentinels = map[string]error{
	"ErrUserRejected":      coffee.ErrUserRejected,
	"ErrNoContract":        coffee.ErrNoContract,
	"ErrWritesDisabled":    coffee.ErrWritesDisabled,
	"ErrTransactionFailed": coffee.ErrTransactionFailed,
	"ErrUsernameTaken":     coffee.ErrUsernameTaken,
	"ErrProfileExists":     coffee.ErrProfileExists,
}

// HTTPStatus picks the HTTP status code for an error returned from a
// handler.  Errors that implement ErrorStatus choose their own;
// well-known coffee errors have fixed codes; anything else is a 500.
func HTTPStatus(err error) int {
	var withStatus ErrorStatus
	if errors.As(err, &withStatus) {
		return withStatus.HTTPStatus()
	}
	var invalid coffee.ErrInvalid
	var missing coffee.ErrNoSuchProfile
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusNotFound
	case errors.Is(err, coffee.ErrUsernameTaken), errors.Is(err, coffee.ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, coffee.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, coffee.ErrNoContract), errors.Is(err, coffee.ErrWritesDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, coffee.ErrTransactionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the status and body for a failed request.
func NewErrorResponse(err error) (int, ErrorResponse) {
	status := HTTPStatus(err)
	resp := ErrorResponse{Error: "error", Message: err.Error()}
	resp.FromError(err)
	if status >= 500 {
		resp.Message = GenericMessage
	}
	return status, resp
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known coffee errors, even
// when wrapped, to specific e.Error codes.
func (e *ErrorResponse) FromError(err error) {
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			e.Error = code
			return
		}
	}
	var invalid coffee.ErrInvalid
	if errors.As(err, &invalid) {
		e.Error = "ErrInvalid"
		e.Value = invalid.Field
		e.Reason = invalid.Reason
		return
	}
	var missing coffee.ErrNoSuchProfile
	if errors.As(err, &missing) {
		e.Error = "ErrNoSuchProfile"
		e.Value = missing.Key
	}
}

// ToError converts e back to a coffee error, if that is possible.
// If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	if sentinel, known := sentinels[e.Error]; known {
		return sentinel
	}
	switch e.Error {
	case "ErrInvalid":
		return coffee.ErrInvalid{Field: e.Value, Reason: e.Reason}
	case "ErrNoSuchProfile":
		return coffee.ErrNoSuchProfile{Key: e.Value}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic, and
// returns a description including the stack for server-side logs.
// Typical use is:
//
//	defer func() {
//	    if obj := recover(); obj != nil {
//	        resp := restdata.ErrorResponse{}
//	        detail := resp.FromPanic(obj)
//	        // log detail, write resp out as makes sense
//	    }
//	}()
func (e *ErrorResponse) FromPanic(obj interface{}) string {
	e.Error = "panic"
	e.Message = GenericMessage
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	return fmt.Sprintf("%+v\n%s", obj, stack[:n])
}
