// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/jtacoma/uritemplates"
)

// resource is any object that has a URL and a representation.
type resource struct {
	URL *url.URL

	// HTTP sends requests.  If nil, http.DefaultClient is used.
	HTTP *http.Client
}

// Template expands a URI template from a server document and resolves
// the result against the resource's own URL.
func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}
	return r.URL.Parse(expanded)
}

func (r *resource) client() *http.Client {
	if r.HTTP == nil {
		return http.DefaultClient
	}
	return r.HTTP
}

// Do sends one request.  A non-nil in is encoded as the JSON body; a
// non-nil out, which must be a pointer, receives the decoded response.
// Non-2xx responses come back as the server's error, reconstructed
// from its ErrorResponse body where possible.
func (r *resource) Do(ctx context.Context, method string, u *url.URL, in, out interface{}) (err error) {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err = restdata.Encode(buf, in); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", restdata.V1JSONMediaType)
	}
	if out != nil {
		req.Header.Set("Accept", restdata.V1JSONMediaType)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil {
			err = cerr
		}
	}()

	if err = checkHTTPStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return restdata.Decode(resp.Header.Get("Content-Type"), resp.Body, out)
}

// to expands template and sends method to the resulting URL.
func (r *resource) to(ctx context.Context, method, template string, vars map[string]interface{}, in, out interface{}) error {
	u, err := r.Template(template, vars)
	if err != nil {
		return err
	}
	return r.Do(ctx, method, u, in, out)
}

// Get retrieves the resource from its own URL into out.
func (r *resource) Get(ctx context.Context, out interface{}) error {
	return r.Do(ctx, http.MethodGet, r.URL, nil, out)
}

// GetFrom retrieves the resource named by a URI template into out.
func (r *resource) GetFrom(ctx context.Context, template string, vars map[string]interface{}, out interface{}) error {
	return r.to(ctx, http.MethodGet, template, vars, nil, out)
}

// PutTo replaces the resource named by a URI template.
func (r *resource) PutTo(ctx context.Context, template string, vars map[string]interface{}, in, out interface{}) error {
	return r.to(ctx, http.MethodPut, template, vars, in, out)
}

// PostTo submits in to the resource named by a URI template.
func (r *resource) PostTo(ctx context.Context, template string, vars map[string]interface{}, in, out interface{}) error {
	return r.to(ctx, http.MethodPost, template, vars, in, out)
}

// ErrorHTTP is returned for a failed response whose body is not a
// server error document, such as a proxy's HTML error page.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// checkHTTPStatus returns nil for a 2xx response, and otherwise the
// error the response describes.  It consumes the body on failure.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var errResp restdata.ErrorResponse
	if restdata.Decode(resp.Header.Get("Content-Type"), bytes.NewReader(body), &errResp) == nil && errResp.Error != "" {
		return errResp.ToError()
	}
	return ErrorHTTP{Response: resp, Body: string(body)}
}
