package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
	WriteConfig string
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("WIDGETFLOW_CONFIG", ""),
		"Path to a JSON configuration file, optional (env: WIDGETFLOW_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("WIDGETFLOW_CONFIG", ""),
		"Path to a JSON configuration file, optional (env: WIDGETFLOW_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("WIDGETFLOW_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: WIDGETFLOW_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("WIDGETFLOW_LOG_FORMAT", "json"),
		"Log format: json, text (env: WIDGETFLOW_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("WIDGETFLOW_DEBUG", false),
		"Enable debug logging (env: WIDGETFLOW_DEBUG)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.StringVar(&cfg.WriteConfig, "write-config", "",
		"Write the effective configuration to this JSON file and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - widget pipeline service

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run in memory with defaults
  %s

  # Persist pipelines in NATS KV and publish events on NATS
  export WIDGETFLOW_STORAGE_MODE=kv
  export WIDGETFLOW_EVENTS_TRANSPORT=nats
  export WIDGETFLOW_NATS_URL=nats://nats:4222
  %s --log-format=text

  # Check a configuration file
  %s --config=/etc/widgetflow/config.json --validate

  # Write the effective configuration as a starting point
  %s --write-config=widgetflow.json

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
