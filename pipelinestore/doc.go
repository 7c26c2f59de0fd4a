// Package pipelinestore persists pipelines behind the Gateway interface.
//
// Two implementations share the same semantics:
//
//   - MemoryStore keeps pipelines in process, for tests and single-node use.
//   - KVStore writes to a NATS JetStream KV bucket under "<canvas>.<pipeline>"
//     keys.
//
// Both refuse pipelines that fail pipeline.Validate or whose IDs cannot be
// used as key tokens (letters, digits, '-', '_' and '=').
//
// # Versions
//
// Every pipeline carries a Version used for optimistic concurrency. A
// pipeline that has never been saved has version 0; the first Save stores
// version 1 and each later Save increments it. A Save whose version differs
// from the stored one fails with errors.ErrVersionConflict and leaves the
// stored pipeline untouched. Conflicts are reported, never merged.
//
// On success Save updates the caller's Version and timestamps so the same
// value can be edited and saved again.
//
// # Records
//
// KVStore wraps each pipeline in a Record carrying SchemaVersion. Records
// with an unknown schema version fail to load with
// errors.ErrUnknownSchemaVersion instead of being misread.
//
// Instrumented decorates any Gateway with store metrics.
package pipelinestore
