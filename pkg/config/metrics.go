package config

import (
	"github.com/marmos91/dittoweb/pkg/metrics"
	promMetrics "github.com/marmos91/dittoweb/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// HTTPMetrics is the collector for the HTTP adapter (never nil, no-op if disabled)
	HTTPMetrics metrics.HTTPMetrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// When metrics are enabled the global registry is initialized and a metrics
// server is created; otherwise no-op collectors are returned and Server is nil.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			HTTPMetrics: metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		}),
		HTTPMetrics: promMetrics.NewHTTPMetrics(),
	}
}
