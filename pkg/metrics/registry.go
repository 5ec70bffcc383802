// Package metrics provides Prometheus metrics collection for dittoweb.
//
// Metrics are optional. Until InitRegistry is called every constructor hands
// out a no-op implementation, so the serving path never branches on whether
// metrics are on.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics for the HTTP adapter
//	httpMetrics := prometheus.NewHTTPMetrics()
//
//	// Expose them
//	srv := metrics.NewServer(metrics.ServerConfig{Port: 9090})
//	go srv.Start(ctx)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and read everywhere else.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry and registers the Go runtime and
// process collectors on it. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
