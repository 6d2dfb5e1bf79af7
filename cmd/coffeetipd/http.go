// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/diffeo/go-coffeetip/restserver"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"
)

// shutdownTimeout bounds how long Serve waits for requests in
// flight once its context is cancelled.
const shutdownTimeout = 10 * time.Second

// Handler returns the complete HTTP interface: the REST API, the
// event stream and /metrics, behind panic recovery and, optionally,
// request logging.
func (d *daemon) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, d.registry()},
		promhttp.HandlerOpts{},
	))
	restserver.PopulateRouter(r, restserver.API{
		Reader:   d.Reader,
		Profiles: d.Profiles,
		Tipping:  d.Tipping,
		Presence: d.Presence,
		Sender:   d.Sender,
		Log:      d.Options.Log.WithField("component", "rest"),
	})

	recovery := negroni.NewRecovery()
	recovery.Logger = d.Options.Log
	recovery.PrintStack = false
	n := negroni.New(recovery)
	if d.Options.LogRequests {
		logger := negroni.NewLogger()
		logger.ALogger = d.Options.Log
		n.Use(logger)
	}
	n.UseHandler(r)
	return n
}

// Serve runs the HTTP server on the configured address until ctx is
// cancelled or the listener fails.
func (d *daemon) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    d.Config.HTTP,
		Handler: d.Handler(),
	}
	errs := make(chan error, 1)
	go func() {
		d.Options.Log.WithField("addr", server.Addr).Info("serving HTTP")
		errs <- server.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
