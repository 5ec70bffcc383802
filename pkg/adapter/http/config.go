package http

import (
	"fmt"
	"time"
)

// HTTPConfig holds configuration for the HTTP adapter.
//
// All limits are optional; zero disables them. The defaults reproduce a
// plain one-request-per-connection static file server.
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Address is the interface to bind, e.g. "0.0.0.0" or "127.0.0.1".
	// Empty binds all interfaces.
	Address string `mapstructure:"address"`

	// Port is the TCP port to listen on. 0 binds an ephemeral port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Threads is the number of goroutines draining the reactor.
	// 0 is treated as 1.
	Threads int `mapstructure:"threads" validate:"min=0"`

	// MaxConnections limits concurrently open connections. While the limit
	// is reached no further connection is accepted. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// ReadTimeout bounds each socket read. Expiry drops the connection
	// without a reply. 0 means no timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the reply. 0 means no timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// RateLimit caps the rate of admitted connections.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures connection admission. Connections over the
// limit are answered with 503 Service Unavailable and closed.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained admission rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the bucket size. 0 defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst"`
}

// applyDefaults fills in zero values.
func (c *HTTPConfig) applyDefaults() {
	if c.Threads <= 0 {
		c.Threads = 1
	}
}

// validate checks the configuration.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.Threads < 1 {
		return fmt.Errorf("invalid threads %d: must be >= 1", c.Threads)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	return nil
}
