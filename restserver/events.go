// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"time"

	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Websocket tuning for the event stream.
const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Events upgrades the request to a websocket and streams cache events
// to it until either side closes.  Events that arrive while the
// client is too slow to read them are dropped.
func (api *restAPI) Events(resp http.ResponseWriter, req *http.Request) {
	log := api.Log.WithFields(logrus.Fields{
		"path":   req.URL.Path,
		"remote": req.RemoteAddr,
	})
	if api.Reader == nil || api.Reader.Cache == nil {
		http.Error(resp, errNotImplemented{Text: "No event stream"}.Error(), http.StatusNotImplemented)
		return
	}
	conn, err := api.Upgrader.Upgrade(resp, req, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		log.WithField("err", err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := make(chan querycache.Event, eventBuffer)
	cancel := api.Reader.Cache.Subscribe(func(ev querycache.Event) {
		select {
		case events <- ev:
		default:
			log.WithField("kind", ev.Kind).Debug("dropped event for slow client")
		}
	})
	defer cancel()

	// Read and discard client messages, which also processes
	// control frames and notices when the client goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	log.Debug("event stream opened")
	for {
		select {
		case <-closed:
			log.Debug("event stream closed")
			return
		case <-req.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := writeEvent(conn, cacheEvent(ev)); err != nil {
				log.WithField("err", err).Debug("event stream write failed")
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// writeEvent sends one event as a JSON text message.
func writeEvent(conn *websocket.Conn, ev restdata.Event) error {
	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := restdata.Encode(w, ev); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
