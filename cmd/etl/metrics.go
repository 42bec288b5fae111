package main

import (
	"fmt"

	"go.uber.org/zap"

	"songplays/internal/config"
	"songplays/internal/metrics"
	"songplays/internal/metrics/datadog"
	"songplays/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns a function that
// flushes it at shutdown. On error the nop backend stays installed.
func setupMetrics(c config.MetricsConfig, job string, log *zap.Logger) (func(), error) {
	var b metrics.Backend
	switch c.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil
	case "pushgateway":
		pb, err := prompush.NewBackend(job, c.PushgatewayURL)
		if err != nil {
			return func() {}, err
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{Addr: c.DatadogAddr, Namespace: c.Namespace, GlobalTags: c.Tags})
		if err != nil {
			return func() {}, err
		}
		b = db
	default:
		return func() {}, fmt.Errorf("unknown metrics backend %q", c.Backend)
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled", zap.String("backend", c.Backend), zap.String("job", job))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}, nil
}
