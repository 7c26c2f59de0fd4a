package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/widgetflow/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "widgetflow.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.NeedsNATS())
	assert.Equal(t, "Canvas Pipeline", cfg.Wiring.DefaultPipelineName)
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeConfig(t, `{
		"storage": {"mode": "kv", "bucket": "editor_pipelines"},
		"nats": {"url": "nats://nats:4222", "timeout": "3s", "reconnect_wait": "500ms"},
		"events": {"transport": "nats", "subject_prefix": "studio.events"},
		"http": {"addr": ":9090", "shutdown_timeout": "1m"},
		"manifests": {"dir": "/etc/widgetflow/widgets"}
	}`)

	loader := NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, StorageModeKV, cfg.Storage.Mode)
	assert.Equal(t, "editor_pipelines", cfg.Storage.Bucket)
	assert.Equal(t, 10, cfg.Storage.History, "keys missing from the file keep defaults")
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, 3*time.Second, cfg.NATS.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.NATS.ReconnectWait)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, "studio.events", cfg.Events.SubjectPrefix)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, time.Minute, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "/etc/widgetflow/widgets", cfg.Manifests.Dir)
	assert.True(t, cfg.NeedsNATS())
}

func TestLoader_Layers(t *testing.T) {
	base := writeConfig(t, `{"http": {"addr": ":7000"}, "wiring": {"default_pipeline_name": "Base"}}`)
	override := writeConfig(t, `{"wiring": {"default_pipeline_name": "Override"}}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "Override", cfg.Wiring.DefaultPipelineName)
}

func TestLoader_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"http": {"addr": ":7000"}}`)
	t.Setenv("WIDGETFLOW_HTTP_ADDR", ":7001")
	t.Setenv("WIDGETFLOW_STORAGE_MODE", "kv")
	t.Setenv("WIDGETFLOW_STORAGE_HISTORY", "5")
	t.Setenv("WIDGETFLOW_NATS_TIMEOUT", "250ms")
	t.Setenv("WIDGETFLOW_NATS_TOKEN", "s3cret")
	t.Setenv("WIDGETFLOW_HTTP_RATE_LIMIT", "2.5")
	t.Setenv("WIDGETFLOW_HTTP_RATE_BURST", "3")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.HTTP.Addr, "environment wins over files")
	assert.Equal(t, StorageModeKV, cfg.Storage.Mode)
	assert.Equal(t, 5, cfg.Storage.History)
	assert.Equal(t, 250*time.Millisecond, cfg.NATS.Timeout)
	assert.Equal(t, "s3cret", cfg.NATS.Token)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
	assert.Equal(t, 3, cfg.HTTP.RateBurst)
	assert.NotContains(t, cfg.String(), "s3cret")
}

func TestLoader_BadEnvValues(t *testing.T) {
	tests := map[string]string{
		"WIDGETFLOW_STORAGE_HISTORY": "ten",
		"WIDGETFLOW_NATS_TIMEOUT":    "soon",
		"WIDGETFLOW_HTTP_ADDR":       "bad\x00addr",
		"WIDGETFLOW_HTTP_RATE_LIMIT": "fast",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			loader := NewLoader()
			loader.getenv = func(k string) string {
				if k == key {
					return value
				}
				return ""
			}
			_, err := loader.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoader_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		message string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") },
			message: "cannot stat",
		},
		{
			name: "not json extension",
			path: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
				return path
			},
			message: "only JSON",
		},
		{
			name:    "relative escape",
			path:    func(*testing.T) string { return "../../outside.json" },
			message: "path traversal",
		},
		{
			name:    "too deep",
			path:    func(t *testing.T) string { return writeConfig(t, strings.Repeat("[", 40)+strings.Repeat("]", 40)) },
			message: "too deep",
		},
		{
			name:    "bad duration",
			path:    func(t *testing.T) string { return writeConfig(t, `{"nats": {"timeout": "forever"}}`) },
			message: "nats.timeout",
		},
		{
			name:    "malformed",
			path:    func(t *testing.T) string { return writeConfig(t, `{"http": `) },
			message: "unclosed",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(test.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{"unknown storage", func(c *Config) { c.Storage.Mode = "disk" }, "storage.mode"},
		{"history too large", func(c *Config) { c.Storage.History = 65 }, "storage.history"},
		{"bucket with dots", func(c *Config) { c.Storage.Bucket = "a.b" }, "storage.bucket"},
		{"unknown transport", func(c *Config) { c.Events.Transport = "kafka" }, "events.transport"},
		{"bad subject prefix", func(c *Config) {
			c.Events.Transport = EventsNATS
			c.Events.SubjectPrefix = "has space"
		}, "events.subject_prefix"},
		{"kv without url", func(c *Config) {
			c.Storage.Mode = StorageModeKV
			c.NATS.URL = ""
		}, "nats.url"},
		{"kv without timeout", func(c *Config) {
			c.Storage.Mode = StorageModeKV
			c.NATS.Timeout = 0
		}, "nats.timeout"},
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"negative rate", func(c *Config) { c.HTTP.RateLimit = -1 }, "http.rate_limit"},
		{"rate without burst", func(c *Config) { c.HTTP.RateBurst = 0 }, "http.rate_burst"},
		{"blank pipeline name", func(c *Config) { c.Wiring.DefaultPipelineName = "  " }, "default_pipeline_name"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Defaults()
			test.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
			assert.Contains(t, err.Error(), test.problem)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.HTTP.Addr = ""
	cfg.Storage.Mode = "disk"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.addr")
	assert.Contains(t, err.Error(), "storage.mode")
}

func TestValidateIgnoresNATSWhenUnused(t *testing.T) {
	cfg := Defaults()
	cfg.NATS.URL = ""
	cfg.NATS.Timeout = 0
	assert.NoError(t, cfg.Validate())
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := Defaults()
	cfg.HTTP.Addr = ":1234"
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
