// Package config loads the widgetflow service configuration.
//
// Configuration is resolved in layers: Defaults, then each JSON file added
// with AddLayer (only keys present in a file override earlier values), then
// WIDGETFLOW_* environment variables. Durations in files are Go duration
// strings such as "5s".
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/widgetflow.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Validate reports every problem at once, each wrapping
// errors.ErrInvalidConfig. NATS settings are only checked when kv storage or
// nats events need a connection.
package config
