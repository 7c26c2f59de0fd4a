package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/widgetflow/config"
	"github.com/c360/widgetflow/metric"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("WIDGETFLOW_LOG_FORMAT", "text")

	cfg, err := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-c", "cfg.json", "-debug"})
	require.NoError(t, err)
	assert.Equal(t, "cfg.json", cfg.ConfigPath)
	assert.Equal(t, "debug", cfg.LogLevel, "debug overrides the level")
	assert.Equal(t, "text", cfg.LogFormat, "environment fallback")
}

func TestValidateFlags(t *testing.T) {
	valid := &CLIConfig{LogLevel: "info", LogFormat: "json"}
	assert.NoError(t, validateFlags(valid))

	tests := []struct {
		name string
		cfg  CLIConfig
	}{
		{"missing config file", CLIConfig{ConfigPath: "does-not-exist.json", LogLevel: "info", LogFormat: "json"}},
		{"bad level", CLIConfig{LogLevel: "loud", LogFormat: "json"}},
		{"bad format", CLIConfig{LogLevel: "info", LogFormat: "xml"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, validateFlags(&test.cfg))
		})
	}

	assert.NoError(t, validateFlags(&CLIConfig{ShowVersion: true, LogLevel: "loud"}))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "canvas_id", "c1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, appName, line["service"])
	assert.Equal(t, "c1", line["canvas_id"])
}

func TestRunWritesAndValidatesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgetflow.json")
	require.NoError(t, run([]string{"-write-config", path, "-log-format", "text"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"default_pipeline_name"`)

	require.NoError(t, run([]string{"-config", path, "-validate"}))
}

func newTestApp(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logger := setupLogger(io.Discard, "error", "json")
	a, err := newApp(context.Background(), cfg, nil, metric.NewMetricsRegistry(), logger)
	require.NoError(t, err)
	a.monitor.Refresh(context.Background())
	return a.handler
}

func TestAppServesAPIHealthAndMetrics(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.yaml"),
		[]byte("id: counter\nio:\n  outputs: [{name: count, type: number}]\n"), 0o600))

	cfg := config.Defaults()
	cfg.Manifests.Dir = dir
	handler := newTestApp(t, cfg)

	body := `{"from": {"widget": {"id": "w1", "widget_def_id": "counter"}, "port": "count"},
	          "to": {"widget": {"id": "w2", "inputs": [{"name": "count", "type": "number"}]}, "port": "count"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/canvases/c1/connections", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widgets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counter")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"manifests"`)
	assert.Contains(t, rec.Body.String(), `"store"`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "widgetflow_wiring_operations_total")
}

func TestAppRejectsMissingManifestDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Manifests.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := newApp(context.Background(), cfg, nil, metric.NewMetricsRegistry(), setupLogger(io.Discard, "error", "json"))
	assert.Error(t, err)
}
