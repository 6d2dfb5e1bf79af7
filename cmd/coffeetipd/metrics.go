// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// registry builds the daemon's own metrics.  The library packages
// register theirs with the default registry.
func (d *daemon) registry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "coffeetip",
			Subsystem: "daemon",
			Name:      "cache_entries",
			Help:      "Number of live query cache entries",
		}, func() float64 {
			return float64(d.Cache.Len())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "coffeetip",
			Subsystem: "daemon",
			Name:      "profiles",
			Help:      "Number of stored creator profiles",
		}, func() float64 {
			count, err := d.Profiles.Count(context.Background())
			if err != nil {
				return -1
			}
			return float64(count)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "coffeetip",
			Subsystem: "daemon",
			Name:      "coordinator_state",
			Help:      "Invalidation coordinator state (0 idle, 1 debounce pending, 2 cooldown)",
		}, func() float64 {
			return float64(d.Coordinator.State())
		}),
	)
	return registry
}
