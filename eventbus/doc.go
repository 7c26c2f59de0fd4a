// Package eventbus announces committed pipeline changes to editors.
//
// Events are published only after the persistence gateway accepted a change,
// so a subscriber never sees an edit that was not stored. Two Bus
// implementations exist: MemoryBus fans out synchronously inside the process
// and NATSBus carries JSON events over core NATS subjects so several service
// instances share one stream.
//
// Events carry the pipeline version; consumers that care about ordering
// should ignore events older than the version they already hold.
package eventbus
