// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"

	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/gorilla/websocket"
)

// Events connects to the server's event stream and calls fn with
// each event until ctx is cancelled or the connection fails.  It
// returns nil if ctx was cancelled.
func (c *Client) Events(ctx context.Context, fn func(restdata.Event)) error {
	u, err := c.Template(c.Representation.EventsURL, nil)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, r, err := conn.NextReader()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var ev restdata.Event
		if err := restdata.Decode(restdata.V1JSONMediaType, r, &ev); err != nil {
			return err
		}
		fn(ev)
	}
}
