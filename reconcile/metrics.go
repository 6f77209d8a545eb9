package reconcile

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-antientropy/hashtree"
	"github.com/spacemeshos/go-antientropy/metrics"
)

const subsystem = "reconcile"

var (
	walks = metrics.NewCounter(
		"walks",
		subsystem,
		"number of completed walks by status",
		[]string{"status"},
	)
	fetches = metrics.NewCounter(
		"fetches",
		subsystem,
		"remote fetches issued by walks",
		[]string{"kind", "result"},
	)
	walkDuration = metrics.NewHistogramWithBuckets(
		"walk_duration_seconds",
		subsystem,
		"duration of a walk",
		[]string{"status"},
		prometheus.ExponentialBuckets(0.001, 2, 16),
	)
)

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, hashtree.ErrOutOfRange):
		return "missing"
	default:
		return "error"
	}
}
