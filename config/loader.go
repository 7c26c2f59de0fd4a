package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. WIDGETFLOW_HTTP_ADDR
const DefaultEnvPrefix = "WIDGETFLOW"

// Loader handles configuration loading with layers and overrides. Layers
// are applied in order over the defaults, then environment variables.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  DefaultEnvPrefix,
		getenv:     os.Getenv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg, err = l.mergeFromMap(cfg, rawConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing is overridden:
// in-memory storage and events, no NATS.
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Mode:    StorageModeMemory,
			Bucket:  "widgetflow_pipelines",
			History: 10,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "widgetflow",
			Timeout:       5 * time.Second,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Events: EventsConfig{
			Transport:     EventsMemory,
			SubjectPrefix: "widgetflow.events",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
			RateBurst:       20,
		},
		Wiring: WiringConfig{
			DefaultPipelineName: "Canvas Pipeline",
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	if err := parseDurations(rawConfig); err != nil {
		return nil, err
	}
	return rawConfig, nil
}

// durationFields lists the duration-valued keys per section
var durationFields = map[string][]string{
	"nats": {"timeout", "reconnect_wait"},
	"http": {"shutdown_timeout"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) error {
	for section, keys := range durationFields {
		values, ok := data[section].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range keys {
			s, ok := values[key].(string)
			if !ok {
				continue
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", section, key, err)
			}
			values[key] = d.Nanoseconds()
		}
	}
	return nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	stringVars := []struct {
		name   string
		target *string
	}{
		{"STORAGE_MODE", &cfg.Storage.Mode},
		{"STORAGE_BUCKET", &cfg.Storage.Bucket},
		{"NATS_URL", &cfg.NATS.URL},
		{"NATS_NAME", &cfg.NATS.Name},
		{"NATS_USERNAME", &cfg.NATS.Username},
		{"NATS_PASSWORD", &cfg.NATS.Password},
		{"NATS_TOKEN", &cfg.NATS.Token},
		{"EVENTS_TRANSPORT", &cfg.Events.Transport},
		{"EVENTS_SUBJECT_PREFIX", &cfg.Events.SubjectPrefix},
		{"HTTP_ADDR", &cfg.HTTP.Addr},
		{"MANIFESTS_DIR", &cfg.Manifests.Dir},
		{"WIRING_DEFAULT_PIPELINE_NAME", &cfg.Wiring.DefaultPipelineName},
	}
	for _, s := range stringVars {
		val, err := l.env(s.name)
		if err != nil {
			return err
		}
		if val != "" {
			*s.target = val
		}
	}

	ints := []struct {
		name   string
		target *int
	}{
		{"STORAGE_HISTORY", &cfg.Storage.History},
		{"NATS_MAX_RECONNECTS", &cfg.NATS.MaxReconnects},
		{"HTTP_RATE_BURST", &cfg.HTTP.RateBurst},
	}
	for _, i := range ints {
		val, err := l.env(i.name)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, i.name, err)
		}
		*i.target = n
	}

	if val, err := l.env("HTTP_RATE_LIMIT"); err != nil {
		return err
	} else if val != "" {
		limit, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%s_HTTP_RATE_LIMIT: %w", l.envPrefix, err)
		}
		cfg.HTTP.RateLimit = limit
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"NATS_TIMEOUT", &cfg.NATS.Timeout},
		{"HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
	}
	for _, d := range durations {
		val, err := l.env(d.name)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", l.envPrefix, d.name, err)
		}
		*d.target = parsed
	}
	return nil
}

func (l *Loader) env(name string) (string, error) {
	key := l.envPrefix + "_" + name
	val := l.getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return "", err
	}
	return val, nil
}
