package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/metrics/public"
)

// StartMetricsServer serves the default and public registries on
// address/metrics. The returned server must be shut down by the caller.
func StartMetricsServer(logger *zap.Logger, address string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, public.Registry},
		promhttp.HandlerOpts{},
	))
	srv := &http.Server{Addr: address, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
