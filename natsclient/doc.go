// Package natsclient wraps a NATS connection with a circuit breaker and
// revision-aware JetStream KV access.
//
// Client tracks its connection state through Disconnected, Connecting,
// Connected and Reconnecting. After a configurable number of consecutive
// connection failures (default 5) the circuit opens and Connect fails fast
// with ErrCircuitOpen until the backoff has elapsed; each further failure
// doubles the backoff up to the configured maximum.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithCircuitBreakerThreshold(3),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// KVStore adds compare-and-swap helpers on top of a bucket. Create and
// Update map NATS conflicts to ErrKVKeyExists and ErrKVRevisionMismatch so
// callers can detect concurrent writers without parsing server errors.
// UpdateWithRetry runs a read-modify-write loop with exponential backoff.
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "widgetflow_pipelines"})
//	kv := client.NewKVStore(bucket)
//	entry, err := kv.Get(ctx, "canvas-1.pipeline-1")
//	_, err = kv.Update(ctx, entry.Key, newValue, entry.Revision)
//
// NewTestClient starts a disposable NATS server with testcontainers for
// integration tests.
package natsclient
