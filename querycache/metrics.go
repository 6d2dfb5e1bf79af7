// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package querycache

import "github.com/prometheus/client_golang/prometheus"

var requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "coffeetip",
		Subsystem: "querycache",
		Name:      "requests_total",
		Help:      "Fetch requests by result (hit, miss, error)",
	},
	[]string{"result"},
)

var invalidations = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "coffeetip",
		Subsystem: "querycache",
		Name:      "invalidations_total",
		Help:      "Entries marked stale by Invalidate",
	},
)

func init() {
	prometheus.MustRegister(requests, invalidations)
}
