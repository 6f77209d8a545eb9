package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/metrics/public"
)

// A wrapper around zap.Logger to make it compatible with
// retryablehttp.LeveledLogger interface.
type retryableHTTPLogger struct {
	inner *zap.Logger
}

func (r retryableHTTPLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHTTPLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHTTPLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHTTPLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

func newPusher(logger *zap.Logger, url string, headers map[string]string, period time.Duration, replicaID string) *push.Pusher {
	header := http.Header{}
	for k, v := range headers {
		header.Add(k, v)
	}
	client := &retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: period},
		Logger:       retryableHTTPLogger{inner: logger},
		RetryMax:     3,
		RetryWaitMin: period / 20,
		RetryWaitMax: period / 4,
		Backoff:      retryablehttp.LinearJitterBackoff,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
	}
	return push.New(url, "antientropy").
		Gatherer(public.Registry).
		Grouping("replica", replicaID).
		Header(header).
		Client(client.StandardClient())
}

// StartPushingMetrics pushes the public registry to url every period until
// ctx is done. Failed pushes are retried a few times before the next period.
func StartPushingMetrics(
	ctx context.Context,
	logger *zap.Logger,
	url string,
	headers map[string]string,
	period time.Duration,
	replicaID string,
) {
	pusher := newPusher(logger, url, headers, period, replicaID)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pusher.PushContext(ctx); err != nil {
					logger.Warn("failed to push metrics", zap.Error(err))
				}
			}
		}
	}()
}
