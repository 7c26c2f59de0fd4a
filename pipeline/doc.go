// Package pipeline provides the data-flow graph that wires widget output
// ports to widget input ports on a canvas.
//
// # Overview
//
// A Pipeline is a canvas-scoped graph of Nodes and Connections. Widget nodes
// are bound to exactly one widget instance; system and transform nodes carry
// no widget binding. A Connection links an output Endpoint to an input
// Endpoint and is identified, for deduplication, by its ConnectionKey
// (source node, source port, target node, target port).
//
// All operations in this package are synchronous and operate on in-memory
// values. A pipeline is edited by a single owner before it is handed to
// persistence, so nothing here locks.
//
// # Components
//
//   - NodeRegistry: one node per widget instance, grid placement on creation
//   - Builder: fluent connect(...).To(...) construction with an explicit
//     Idle / PendingFrom state machine
//   - Merger: combines two pipelines without ID collisions or duplicate edges
//   - SuggestConnections: heuristic port-name matching for new widgets
//   - ValidatePipeline: structural checks run before persistence
//   - Route: the lookup a runtime router performs for an emission
//
// # Builder Semantics
//
//	p, err := pipeline.New("dashboard", "canvas-1").
//		Connect(sensor, "reading").To(chart, "series").
//		Connect(sensor, "reading").To(alarm, "level").
//		Build()
//
// Calling Connect twice without To keeps only the last source. Calling To
// without a pending source is an error returned by Build. Building with a
// pending source drops the half-edge and logs a warning.
//
// # Deduplication
//
// Duplicate connections are never errors. AddConnection, Builder.To and
// Merge all drop a connection whose key already exists in the pipeline.
package pipeline
