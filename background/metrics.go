// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package background

import "github.com/prometheus/client_golang/prometheus"

var refreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "coffeetip",
		Subsystem: "background",
		Name:      "refreshes_total",
		Help:      "Periodic cache refreshes by data class.",
	},
	[]string{"class"},
)

func init() {
	prometheus.MustRegister(refreshes)
}
