package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"songplays/internal/config"
	"songplays/internal/metrics"
)

func TestSetupMetricsNone(t *testing.T) {
	for _, backend := range []string{"", "none"} {
		flush, err := setupMetrics(config.MetricsConfig{Backend: backend}, "songplays", zap.NewNop())
		require.NoError(t, err)
		flush()
	}
}

func TestSetupMetricsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MetricsConfig
		msg  string
	}{
		{"unknown", config.MetricsConfig{Backend: "statsd"}, `unknown metrics backend "statsd"`},
		{"pushgateway without url", config.MetricsConfig{Backend: "pushgateway"}, "gateway URL is required"},
		{"datadog without addr", config.MetricsConfig{Backend: "datadog"}, "Addr is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flush, err := setupMetrics(tc.cfg, "songplays", zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
			require.NotNil(t, flush, "callers defer flush unconditionally")
			flush()
		})
	}
}

func TestSetupMetricsPushgatewayFlushes(t *testing.T) {
	var pushes atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	flush, err := setupMetrics(config.MetricsConfig{Backend: "pushgateway", PushgatewayURL: srv.URL}, "nightly", zap.NewNop())
	require.NoError(t, err)

	metrics.RecordFile("nightly", "log", "processed")
	flush()

	assert.EqualValues(t, 1, pushes.Load())
	assert.True(t, strings.HasPrefix(path.Load().(string), "/metrics/job/nightly"), path.Load())
}

func TestSetupMetricsDatadog(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	flush, err := setupMetrics(config.MetricsConfig{
		Backend:     "datadog",
		DatadogAddr: pc.LocalAddr().String(),
		Namespace:   "songplays.",
		Tags:        []string{"env:test"},
	}, "songplays", zap.NewNop())
	require.NoError(t, err)
	flush()
}
