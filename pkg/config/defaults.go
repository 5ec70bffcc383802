package config

import (
	"strings"
	"time"

	httpadapter "github.com/marmos91/dittoweb/pkg/adapter/http"
)

const (
	// DefaultHTTPPort is the port the HTTP adapter binds when none is set.
	DefaultHTTPPort = 8080

	// DefaultMetricsPort is the port of the metrics HTTP server.
	DefaultMetricsPort = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyAdaptersDefaults(&cfg.Adapters)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	// The document root defaults to the working directory.
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "."
	}
}

func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// An untouched HTTP section (no port) means the adapter was never
	// configured: enable it so a config-less start serves something.
	// An explicit "enabled: false" with a port keeps it off.
	if !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}

	applyHTTPDefaults(&cfg.HTTP)
}

func applyHTTPDefaults(cfg *httpadapter.HTTPConfig) {
	if cfg.Address == "" {
		cfg.Address = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultHTTPPort
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	// MaxConnections, timeouts and rate limiting default to 0 (off).
}

// GetDefaultConfig returns a Config with all default values applied.
//
// Used to generate the sample configuration file and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Filesystem: make(map[string]any),
			Memory:     make(map[string]any),
		},
		Adapters: AdaptersConfig{
			HTTP: httpadapter.HTTPConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
