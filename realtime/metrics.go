// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeetip",
			Subsystem: "realtime",
			Name:      "signals_total",
			Help:      "Invalidation requests by signal source.",
		},
		[]string{"signal"},
	)
	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeetip",
			Subsystem: "realtime",
			Name:      "invalidations_total",
			Help:      "Debounced invalidations by outcome.",
		},
		[]string{"outcome"},
	)
	sourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeetip",
			Subsystem: "realtime",
			Name:      "source_failures_total",
			Help:      "Signal sources that stopped with an error.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(signals, outcomes, sourceFailures)
}
