package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	// reloadsTotal counts topology reloads by result (ok, config_error,
	// build_error).
	reloadsTotal *prometheus.CounterVec

	// clusters tracks the number of currently registered clusters.
	clusters prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		reloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topology_reloads_total",
			Help: "Number of topology reloads by result.",
		}, []string{"result"}),
		clusters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "topology_clusters",
			Help: "Number of clusters currently registered.",
		}),
	}
}
