// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package optimistic

import "github.com/prometheus/client_golang/prometheus"

var outcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "coffeetip",
		Subsystem: "optimistic",
		Name:      "coffees_total",
		Help:      "Optimistic coffee records by lifecycle step.",
	},
	[]string{"step"},
)

func init() {
	prometheus.MustRegister(outcomes)
}
