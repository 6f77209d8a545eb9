package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-antientropy/metrics/public"
)

func TestPushMetrics(t *testing.T) {
	public.Leaves.Set(42)

	var attempts atomic.Int32
	received := make(chan map[string]*dto.MetricFamily, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/job/antientropy/replica/test-replica")
		families := map[string]*dto.MetricFamily{}
		dec := expfmt.NewDecoder(r.Body, expfmt.ResponseFormat(r.Header))
		for {
			var mf dto.MetricFamily
			if err := dec.Decode(&mf); err != nil {
				break
			}
			families[mf.GetName()] = &mf
		}
		select {
		case received <- families:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	StartPushingMetrics(ctx, zaptest.NewLogger(t), srv.URL,
		map[string]string{"Authorization": "Bearer token"},
		100*time.Millisecond, "test-replica")

	select {
	case families := <-received:
		leaves, ok := families["antientropy_leaves"]
		require.True(t, ok)
		require.Equal(t, 42.0, leaves.GetMetric()[0].GetGauge().GetValue())
	case <-time.After(5 * time.Second):
		require.FailNow(t, "metrics were not pushed")
	}
	require.GreaterOrEqual(t, attempts.Load(), int32(2))
}
