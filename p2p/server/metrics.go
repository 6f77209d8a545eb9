package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-antientropy/metrics"
)

const (
	subsystem  = "server"
	protoLabel = "protocol"
)

var (
	targetQueue = metrics.NewGauge(
		"target_queue",
		subsystem,
		"target size of the queue",
		[]string{protoLabel},
	)
	queue = metrics.NewGauge(
		"queue",
		subsystem,
		"actual size of the queue",
		[]string{protoLabel},
	)
	targetRps = metrics.NewGauge(
		"rps",
		subsystem,
		"target requests per second",
		[]string{protoLabel},
	)
	streams = metrics.NewCounter(
		"streams",
		subsystem,
		"incoming streams by state",
		[]string{protoLabel, "state"},
	)
	clientRequests = metrics.NewCounter(
		"client_requests",
		subsystem,
		"outgoing requests by result",
		[]string{protoLabel, "result"},
	)
	clientLatency = metrics.NewHistogramWithBuckets(
		"client_latency_seconds",
		subsystem,
		"latency of outgoing requests",
		[]string{protoLabel, "result"},
		prometheus.ExponentialBuckets(0.01, 2, 10),
	)
	serverLatency = metrics.NewHistogramWithBuckets(
		"server_latency_seconds",
		subsystem,
		"latency since accepting a stream until the response is written",
		[]string{protoLabel},
		prometheus.ExponentialBuckets(0.01, 2, 10),
	)
	inQueueLatency = metrics.NewHistogramWithBuckets(
		"in_queue_latency_seconds",
		subsystem,
		"latency between accepting a stream and starting to serve it",
		[]string{protoLabel},
		prometheus.ExponentialBuckets(0.001, 2, 12),
	)
)

// tracker methods are no-ops on a nil tracker.
type tracker struct {
	targetQueue, queue, targetRps   prometheus.Gauge
	accepted, dropped               prometheus.Counter
	completed, failed               prometheus.Counter
	serverLatency, inQueueLatency   prometheus.Observer
	succeeded, failure, serverError prometheus.Counter
	latencySuccess, latencyFailure  prometheus.Observer
}

func newTracker(protocol string) *tracker {
	return &tracker{
		targetQueue:    targetQueue.WithLabelValues(protocol),
		queue:          queue.WithLabelValues(protocol),
		targetRps:      targetRps.WithLabelValues(protocol),
		accepted:       streams.WithLabelValues(protocol, "accepted"),
		dropped:        streams.WithLabelValues(protocol, "dropped"),
		completed:      streams.WithLabelValues(protocol, "completed"),
		failed:         streams.WithLabelValues(protocol, "failed"),
		serverLatency:  serverLatency.WithLabelValues(protocol),
		inQueueLatency: inQueueLatency.WithLabelValues(protocol),
		succeeded:      clientRequests.WithLabelValues(protocol, "success"),
		failure:        clientRequests.WithLabelValues(protocol, "failure"),
		serverError:    clientRequests.WithLabelValues(protocol, "server_error"),
		latencySuccess: clientLatency.WithLabelValues(protocol, "success"),
		latencyFailure: clientLatency.WithLabelValues(protocol, "failure"),
	}
}

func (t *tracker) configured(queueSize int, rps float64) {
	if t == nil {
		return
	}
	t.targetQueue.Set(float64(queueSize))
	t.targetRps.Set(rps)
}

func (t *tracker) accept(queued int) {
	if t == nil {
		return
	}
	t.queue.Set(float64(queued))
	t.accepted.Inc()
}

func (t *tracker) drop() {
	if t == nil {
		return
	}
	t.dropped.Inc()
}

func (t *tracker) dequeue(waited time.Duration) {
	if t == nil {
		return
	}
	t.inQueueLatency.Observe(waited.Seconds())
}

func (t *tracker) served(ok bool, took time.Duration) {
	if t == nil {
		return
	}
	t.serverLatency.Observe(took.Seconds())
	if ok {
		t.completed.Inc()
	} else {
		t.failed.Inc()
	}
}

// requested records an outgoing request. Errors reported by the peer count
// towards the success latency since the round trip completed.
func (t *tracker) requested(err error, took time.Duration) {
	if t == nil {
		return
	}
	switch {
	case err == nil:
		t.succeeded.Inc()
		t.latencySuccess.Observe(took.Seconds())
	case IsServerError(err):
		t.serverError.Inc()
		t.latencySuccess.Observe(took.Seconds())
	default:
		t.failure.Inc()
		t.latencyFailure.Observe(took.Seconds())
	}
}
