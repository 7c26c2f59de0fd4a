package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/widgetflow/errors"
)

// BuilderState is the connection state of a Builder
type BuilderState int

// Builder states. A builder is Idle until Connect names a source port and
// PendingFrom until To completes the edge.
const (
	StateIdle BuilderState = iota
	StatePendingFrom
)

// String returns the state name
func (s BuilderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingFrom:
		return "pending_from"
	default:
		return "unknown"
	}
}

type builderEvent int

const (
	eventConnect builderEvent = iota
	eventTo
	eventBuild
)

// transition is the builder state machine. Connect while PendingFrom is
// legal and replaces the pending source. To while Idle is an error. Build
// always ends Idle; discard reports that a half-edge was dropped.
func transition(state BuilderState, ev builderEvent) (next BuilderState, discard bool, err error) {
	switch ev {
	case eventConnect:
		return StatePendingFrom, false, nil
	case eventTo:
		if state != StatePendingFrom {
			return state, false, errors.ErrNoPendingConnection
		}
		return StateIdle, false, nil
	case eventBuild:
		return StateIdle, state == StatePendingFrom, nil
	default:
		return state, false, fmt.Errorf("unknown builder event %d", ev)
	}
}

// PendingEdge is the source half of a connection awaiting its target
type PendingEdge struct {
	Widget Widget
	Port   string
	NodeID string
}

// Builder constructs a pipeline from connect(...).to(...) chains.
//
//	p, err := pipeline.New("weather", "canvas-1").
//		Connect(source, "temperature").To(display, "value").
//		Build()
//
// Builder methods return the builder for chaining. The first misuse error is
// kept and returned by Build; later calls after an error are ignored.
type Builder struct {
	pipeline *Pipeline
	nodes    *NodeRegistry
	ids      IDGenerator
	logger   *slog.Logger
	now      func() time.Time

	state   BuilderState
	pending PendingEdge
	err     error
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithIDGenerator sets the ID source for the pipeline, nodes and connections
func WithIDGenerator(ids IDGenerator) BuilderOption {
	return func(b *Builder) {
		b.ids = defaultIDs(ids)
	}
}

// WithLogger sets the logger used for builder warnings
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the time source for timestamps
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a builder for an enabled, empty pipeline on the given canvas
func New(name, canvasID string, opts ...BuilderOption) *Builder {
	b := &Builder{
		ids:    UUIDGenerator{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.pipeline = &Pipeline{
		ID:          b.ids.NewID(KindPipeline),
		CanvasID:    canvasID,
		Name:        name,
		Enabled:     true,
		Nodes:       []*Node{},
		Connections: []Connection{},
	}
	b.nodes = NewNodeRegistry(b.pipeline, b.ids)
	return b
}

// State returns the current builder state
func (b *Builder) State() BuilderState {
	return b.state
}

// Pending returns the pending source half-edge, if any
func (b *Builder) Pending() (PendingEdge, bool) {
	return b.pending, b.state == StatePendingFrom
}

// Err returns the first misuse error recorded by the builder
func (b *Builder) Err() error {
	return b.err
}

// Node returns the node registered for a widget, creating it if needed. A
// widget without an ID has no node and records an error.
func (b *Builder) Node(w Widget) *Node {
	if !b.checkWidget(w, "Node") {
		return nil
	}
	return b.nodes.Ensure(w, "")
}

// checkWidget records a sticky error for a widget without an instance ID
func (b *Builder) checkWidget(w Widget, method string) bool {
	if w.ID != "" {
		return true
	}
	if b.err == nil {
		b.err = errors.WrapInvalid(errors.ErrMissingWidgetID, "pipeline", method,
			fmt.Sprintf("register widget of definition %q", w.DefID))
	}
	return false
}

// Connect names the output port of the next connection. Calling Connect
// again before To replaces the pending source.
func (b *Builder) Connect(w Widget, outputPort string) *Builder {
	if b.err != nil || !b.checkWidget(w, "Connect") {
		return b
	}
	next, _, _ := transition(b.state, eventConnect)
	if b.state == StatePendingFrom {
		b.logger.Debug("Replacing pending connection source",
			"pipeline_id", b.pipeline.ID,
			"previous_widget", b.pending.Widget.ID,
			"previous_port", b.pending.Port,
			"widget", w.ID,
			"port", outputPort)
	}

	node := b.nodes.Ensure(w, "")
	b.pending = PendingEdge{Widget: w, Port: outputPort, NodeID: node.ID}
	b.state = next
	return b
}

// To completes the pending connection at the given input port. An identical
// existing connection is left alone and no duplicate is added.
func (b *Builder) To(w Widget, inputPort string) *Builder {
	if b.err != nil {
		return b
	}
	next, _, err := transition(b.state, eventTo)
	if err != nil {
		b.err = errors.WrapInvalid(err, "pipeline", "To",
			fmt.Sprintf("connect to %s.%s", w.ID, inputPort))
		return b
	}
	if !b.checkWidget(w, "To") {
		return b
	}

	target := b.nodes.Ensure(w, "")
	b.pipeline.AddConnection(Connection{
		ID:   b.ids.NewID(KindConnection),
		From: Endpoint{NodeID: b.pending.NodeID, PortName: b.pending.Port},
		To:   Endpoint{NodeID: target.ID, PortName: inputPort},
	})

	b.pending = PendingEdge{}
	b.state = next
	return b
}

// AddWidget registers a node for w without connecting it
func (b *Builder) AddWidget(w Widget, label string) *Builder {
	if b.err != nil || !b.checkWidget(w, "AddWidget") {
		return b
	}
	b.nodes.Ensure(w, label)
	return b
}

// Name sets the pipeline name
func (b *Builder) Name(name string) *Builder {
	b.pipeline.Name = name
	return b
}

// Description sets the pipeline description
func (b *Builder) Description(description string) *Builder {
	b.pipeline.Description = description
	return b
}

// Enabled sets whether the pipeline is active
func (b *Builder) Enabled(enabled bool) *Builder {
	b.pipeline.Enabled = enabled
	return b
}

// Disconnect removes every connection matching the exact endpoint tuple,
// whether enabled or not. Widgets without a node are a no-op.
func (b *Builder) Disconnect(from Widget, fromPort string, to Widget, toPort string) *Builder {
	fromNode, ok := b.nodes.Lookup(from.ID)
	if !ok {
		return b
	}
	toNode, ok := b.nodes.Lookup(to.ID)
	if !ok {
		return b
	}
	b.pipeline.RemoveConnectionsByKey(ConnectionKey{
		FromNode: fromNode.ID,
		FromPort: fromPort,
		ToNode:   toNode.ID,
		ToPort:   toPort,
	})
	return b
}

// ClearConnections removes all connections and keeps the nodes
func (b *Builder) ClearConnections() *Builder {
	b.pipeline.Connections = []Connection{}
	return b
}

// Build returns a snapshot copy of the pipeline. A pending half-edge is
// discarded with a warning. The builder stays usable afterwards.
func (b *Builder) Build() (*Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}

	next, discard, _ := transition(b.state, eventBuild)
	if discard {
		b.logger.Warn("Discarding incomplete connection at build",
			"pipeline_id", b.pipeline.ID,
			"widget", b.pending.Widget.ID,
			"port", b.pending.Port)
		b.pending = PendingEdge{}
	}
	b.state = next

	b.pipeline.Touch(b.now())
	return b.pipeline.Clone(), nil
}
