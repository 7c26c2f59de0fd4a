package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/c360/widgetflow/errors"
)

// Storage mode constants
const (
	StorageModeMemory = "memory" // in-process MemoryStore, lost on restart
	StorageModeKV     = "kv"     // NATS JetStream KV bucket
)

// Event transport constants
const (
	EventsMemory = "memory"
	EventsNATS   = "nats"
)

// maxKVHistory is the JetStream limit on revisions kept per key
const maxKVHistory = 64

// Config represents the complete service configuration
type Config struct {
	Storage   StorageConfig   `json:"storage"`
	NATS      NATSConfig      `json:"nats"`
	Events    EventsConfig    `json:"events"`
	HTTP      HTTPConfig      `json:"http"`
	Manifests ManifestsConfig `json:"manifests"`
	Wiring    WiringConfig    `json:"wiring"`
}

// StorageConfig selects the pipeline persistence gateway
type StorageConfig struct {
	Mode    string `json:"mode"`
	Bucket  string `json:"bucket,omitempty"`
	History int    `json:"history,omitempty"`
}

// NATSConfig holds connection settings, used by kv storage and nats events
type NATSConfig struct {
	URL           string        `json:"url"`
	Name          string        `json:"name,omitempty"`
	Timeout       time.Duration `json:"timeout"`
	MaxReconnects int           `json:"max_reconnects"`
	ReconnectWait time.Duration `json:"reconnect_wait"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// EventsConfig selects how pipeline events reach editors
type EventsConfig struct {
	Transport     string `json:"transport"`
	SubjectPrefix string `json:"subject_prefix"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr            string        `json:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	RateLimit       float64       `json:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `json:"rate_burst"`
}

// ManifestsConfig points at widget definition files
type ManifestsConfig struct {
	Dir string `json:"dir,omitempty"`
}

// WiringConfig configures interactive wiring
type WiringConfig struct {
	DefaultPipelineName string `json:"default_pipeline_name"`
}

// NeedsNATS reports whether any configured component requires a NATS
// connection
func (c *Config) NeedsNATS() bool {
	return c.Storage.Mode == StorageModeKV || c.Events.Transport == EventsNATS
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...))
	}

	switch c.Storage.Mode {
	case StorageModeMemory, StorageModeKV:
	default:
		add("storage.mode must be %q or %q, got %q", StorageModeMemory, StorageModeKV, c.Storage.Mode)
	}
	if c.Storage.History < 0 || c.Storage.History > maxKVHistory {
		add("storage.history must be between 0 and %d, got %d", maxKVHistory, c.Storage.History)
	}
	if c.Storage.Bucket != "" && !isValidBucketName(c.Storage.Bucket) {
		add("storage.bucket %q is not a valid bucket name", c.Storage.Bucket)
	}

	switch c.Events.Transport {
	case EventsMemory, EventsNATS:
	default:
		add("events.transport must be %q or %q, got %q", EventsMemory, EventsNATS, c.Events.Transport)
	}
	if c.Events.Transport == EventsNATS && !isValidNATSSubjectPart(c.Events.SubjectPrefix) {
		add("events.subject_prefix %q is not valid for NATS subjects", c.Events.SubjectPrefix)
	}

	if c.NeedsNATS() {
		if c.NATS.URL == "" {
			add("nats.url is required for %s storage or %s events", StorageModeKV, EventsNATS)
		}
		if c.NATS.Timeout <= 0 {
			add("nats.timeout must be positive")
		}
	}

	if c.HTTP.Addr == "" {
		add("http.addr is required")
	}
	if c.HTTP.ShutdownTimeout < 0 {
		add("http.shutdown_timeout cannot be negative")
	}
	if c.HTTP.RateLimit < 0 {
		add("http.rate_limit cannot be negative")
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateBurst < 1 {
		add("http.rate_burst must be at least 1 when rate_limit is set")
	}
	if strings.TrimSpace(c.Wiring.DefaultPipelineName) == "" {
		add("wiring.default_pipeline_name is required")
	}

	return errors.Join(problems...)
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// isValidBucketName allows the characters JetStream accepts in bucket names
func isValidBucketName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.NATS.Password != "" {
		masked.NATS.Password = "****"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "****"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// SaveToFile writes the configuration as indented JSON, secrets included
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}
