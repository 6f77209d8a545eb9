// Package public holds the metrics that are pushed to a shared gateway.
package public

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Registry = prometheus.NewRegistry()

var (
	Connections = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "antientropy",
		Name:      "connections",
	}, []string{"dir"})
	Leaves = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "antientropy",
		Name:      "leaves",
		Help:      "number of leaves in the served tree",
	})
)
