// Package widgetflow models the wiring of canvas widgets as pipeline graphs.
//
// A canvas holds widgets; a pipeline is the graph of their port-to-port
// connections. widgetflow owns that graph: it normalizes widget manifests
// into typed ports, builds pipelines fluently or interactively, merges and
// validates them, suggests connections by port name, and persists them with
// optimistic versioning while telling every open editor what changed.
//
// # Architecture
//
//	manifest        widget definitions (YAML/JSON) → normalized ports
//	pipeline        graph model, node registry, builder, merge, matcher,
//	                validation and routing; pure, no I/O
//	pipelinestore   Gateway: MemoryStore or NATS KV, versioned records
//	eventbus        pipeline:saved / pipeline:deleted over memory or NATS
//	wiring          Editor: connect, delete, sync and auto-wire on a canvas
//	service         HTTP API and websocket event stream
//	cmd/widgetflow  binary: config, logging, NATS, metrics, health
//
// Supporting packages: errors (classified errors), config (layered JSON and
// environment configuration), metric (Prometheus), natsclient (NATS
// connection with circuit breaker and KV helpers), health, pkg/retry and
// pkg/buffer.
//
// # Running
//
// With defaults everything stays in memory:
//
//	./bin/widgetflow --log-format=text
//
// Persisting pipelines in JetStream KV and fanning events out over NATS:
//
//	WIDGETFLOW_STORAGE_MODE=kv WIDGETFLOW_EVENTS_TRANSPORT=nats \
//	WIDGETFLOW_NATS_URL=nats://localhost:4222 ./bin/widgetflow
//
// # Testing
//
// Unit tests run without external services. Tests that need a NATS server
// start one with testcontainers and are behind the integration build tag:
//
//	go test ./...
//	go test -tags integration ./...
package widgetflow
