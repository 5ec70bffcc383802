package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# dittoweb Configuration File
#
# Every value below is the built-in default. Environment variables override
# file values: DITTOWEB_<SECTION>_<KEY>, e.g. DITTOWEB_ADAPTERS_HTTP_PORT=8081.

`

// sectionComments are written above the top-level keys of the generated file.
var sectionComments = map[string]string{
	"logging": "# Logging: level DEBUG|INFO|WARN|ERROR, format text|json,\n# output stdout|stderr|<file path>",
	"server":  "# Process settings and the optional Prometheus endpoint",
	"store": "# Document store: filesystem | memory | s3 | badger\n" +
		"#   s3:     {endpoint, region, bucket, access_key_id, secret_access_key, key_prefix, force_path_style}\n" +
		"#   badger: {db_path}",
	"adapters": "# HTTP/1.0 server. max_connections, timeouts and rate_limit are off when 0",
}

// InitConfig writes the default configuration to the default location.
//
// Returns the path written. Fails if the file exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := renderConfig(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// renderConfig renders cfg as commented YAML that Load reads back to the
// same values.
func renderConfig(cfg *Config) ([]byte, error) {
	var root yaml.Node
	if err := root.Encode(configDocument(cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}

	return buf.Bytes(), nil
}

// configDocument converts cfg into plain maps so durations are written in
// their human-readable form.
func configDocument(cfg *Config) map[string]any {
	http := cfg.Adapters.HTTP

	store := map[string]any{
		"type":       cfg.Store.Type,
		"filesystem": cfg.Store.Filesystem,
		"memory":     cfg.Store.Memory,
	}
	if len(cfg.Store.S3) > 0 {
		store["s3"] = cfg.Store.S3
	}
	if len(cfg.Store.Badger) > 0 {
		store["badger"] = cfg.Store.Badger
	}

	return map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
		"server": map[string]any{
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
			"metrics": map[string]any{
				"enabled": cfg.Server.Metrics.Enabled,
				"port":    cfg.Server.Metrics.Port,
			},
		},
		"store": store,
		"adapters": map[string]any{
			"http": map[string]any{
				"enabled":         http.Enabled,
				"address":         http.Address,
				"port":            http.Port,
				"threads":         http.Threads,
				"max_connections": http.MaxConnections,
				"read_timeout":    http.ReadTimeout.String(),
				"write_timeout":   http.WriteTimeout.String(),
				"rate_limit": map[string]any{
					"requests_per_second": http.RateLimit.RequestsPerSecond,
					"burst":               http.RateLimit.Burst,
				},
			},
		},
	}
}
