package config

import (
	"fmt"

	"github.com/marmos91/dittoweb/pkg/adapter"
	httpadapter "github.com/marmos91/dittoweb/pkg/adapter/http"
	"github.com/marmos91/dittoweb/pkg/handler"
	"github.com/marmos91/dittoweb/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete dittoweb configuration
//   - h: Request handler shared by the adapters
//   - httpMetrics: Optional HTTP metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: Enabled adapters ready to be added to the server
//   - error: If no adapter is enabled
func CreateAdapters(cfg *Config, h handler.Handler, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		adapters = append(adapters, httpadapter.New(cfg.Adapters.HTTP, h, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
