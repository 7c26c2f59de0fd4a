package wiring

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/pipelinestore"
)

// DefaultPipelineName names pipelines created on demand for a canvas
const DefaultPipelineName = "Canvas Pipeline"

// Editor applies interactive edits to the pipelines of a canvas. Each edit
// loads the stored pipeline, changes a copy, saves it and announces the
// change. A failed save leaves nothing committed and is not retried.
type Editor struct {
	store       pipelinestore.Gateway
	bus         eventbus.Bus
	ids         pipeline.IDGenerator
	logger      *slog.Logger
	metrics     *metric.Metrics
	defaultName string
	now         func() time.Time

	// serializes edits made through this editor
	mu sync.Mutex
}

// Option configures an Editor
type Option func(*Editor)

// WithDefaultPipelineName overrides DefaultPipelineName
func WithDefaultPipelineName(name string) Option {
	return func(e *Editor) {
		if name != "" {
			e.defaultName = name
		}
	}
}

// WithClock sets the time source for timestamps and events
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEditor creates an editor. bus, logger and metrics may be nil.
func NewEditor(
	store pipelinestore.Gateway,
	bus eventbus.Bus,
	ids pipeline.IDGenerator,
	logger *slog.Logger,
	metrics *metric.Metrics,
	opts ...Option,
) *Editor {
	if ids == nil {
		ids = pipeline.UUIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Editor{
		store:       store,
		bus:         bus,
		ids:         ids,
		logger:      logger.With("component", "wiring"),
		metrics:     metrics,
		defaultName: DefaultPipelineName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connect wires from's output port to to's input port in the canvas
// pipeline. The first pipeline of the canvas is used, or a new one is
// created. Missing widgets, self connections and duplicates are reported
// through the outcome and leave the canvas unchanged.
func (e *Editor) Connect(ctx context.Context, canvasID string, from, to pipeline.WidgetPort) (result Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.record("connect", result.Outcome, err) }()

	return e.connect(ctx, canvasID, from, to)
}

func (e *Editor) connect(ctx context.Context, canvasID string, from, to pipeline.WidgetPort) (Result, error) {
	logger := e.logger.With("canvas_id", canvasID)

	if from.Widget.ID == "" || to.Widget.ID == "" || from.Port == "" || to.Port == "" {
		logger.Error("Cannot connect: missing widget or port",
			"from_widget", from.Widget.ID, "from_port", from.Port,
			"to_widget", to.Widget.ID, "to_port", to.Port)
		return Result{Outcome: OutcomeMissingWidget}, nil
	}
	if from.Widget.ID == to.Widget.ID {
		logger.Debug("Rejecting self connection", "widget", from.Widget.ID)
		return Result{Outcome: OutcomeSelfConnection}, nil
	}

	p, err := e.canvasPipeline(ctx, canvasID)
	if err != nil {
		return Result{}, err
	}

	nodes := pipeline.NewNodeRegistry(p, e.ids)
	fromNode := nodes.Ensure(from.Widget, "")
	toNode := nodes.Ensure(to.Widget, "")
	nodes.Refresh(from.Widget)
	nodes.Refresh(to.Widget)

	conn := pipeline.Connection{
		ID:   e.ids.NewID(pipeline.KindConnection),
		From: pipeline.Endpoint{NodeID: fromNode.ID, PortName: from.Port},
		To:   pipeline.Endpoint{NodeID: toNode.ID, PortName: to.Port},
	}
	if !p.AddConnection(conn) {
		return Result{Outcome: OutcomeDuplicate, Pipeline: p}, nil
	}

	if err := e.save(ctx, p); err != nil {
		return Result{}, err
	}
	logger.Info("Connected widgets",
		"pipeline_id", p.ID,
		"connection_id", conn.ID,
		"from", from.Widget.ID+"."+from.Port,
		"to", to.Widget.ID+"."+to.Port)
	return Result{Outcome: OutcomeCreated, Pipeline: p, Connection: &conn}, nil
}

// DeleteConnection removes a connection by ID from whichever canvas
// pipeline holds it.
func (e *Editor) DeleteConnection(ctx context.Context, canvasID, connectionID string) (result Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.record("delete_connection", result.Outcome, err) }()

	pipelines, err := e.store.ListForCanvas(ctx, canvasID)
	if err != nil {
		return Result{}, errors.WrapTransient(err, "wiring", "DeleteConnection", "list canvas pipelines")
	}
	for _, p := range pipelines {
		var removed []pipeline.Connection
		for _, c := range p.Connections {
			if c.ID == connectionID {
				removed = append(removed, c)
			}
		}
		if !p.RemoveConnection(connectionID) {
			continue
		}
		if err := e.save(ctx, p); err != nil {
			return Result{}, err
		}
		e.logger.Info("Deleted connection", "canvas_id", canvasID, "pipeline_id", p.ID, "connection_id", connectionID)
		return Result{Outcome: OutcomeRemoved, Pipeline: p, Removed: removed}, nil
	}

	e.logger.Error("Connection not found", "canvas_id", canvasID, "connection_id", connectionID)
	return Result{Outcome: OutcomeNotFound}, nil
}

// DeleteNode removes a node and every connection touching it
func (e *Editor) DeleteNode(ctx context.Context, canvasID, nodeID string) (result Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.record("delete_node", result.Outcome, err) }()

	pipelines, err := e.store.ListForCanvas(ctx, canvasID)
	if err != nil {
		return Result{}, errors.WrapTransient(err, "wiring", "DeleteNode", "list canvas pipelines")
	}
	for _, p := range pipelines {
		removed, ok := p.RemoveNode(nodeID)
		if !ok {
			continue
		}
		if err := e.save(ctx, p); err != nil {
			return Result{}, err
		}
		e.logger.Info("Deleted node",
			"canvas_id", canvasID, "pipeline_id", p.ID, "node_id", nodeID, "connections_removed", len(removed))
		return Result{Outcome: OutcomeRemoved, Pipeline: p, Removed: removed}, nil
	}

	e.logger.Error("Node not found", "canvas_id", canvasID, "node_id", nodeID)
	return Result{Outcome: OutcomeNotFound}, nil
}

// SyncWidgets makes sure every widget on the canvas has a node in the canvas
// pipeline and that cached ports match the widgets' current declarations.
// Nothing is saved when the pipeline already matches, so an empty widget
// list never creates a pipeline.
func (e *Editor) SyncWidgets(ctx context.Context, canvasID string, widgets []pipeline.Widget) (result Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.record("sync", result.Outcome, err) }()

	p, err := e.canvasPipeline(ctx, canvasID)
	if err != nil {
		return Result{}, err
	}

	changed := false
	nodes := pipeline.NewNodeRegistry(p, e.ids)
	for _, w := range widgets {
		if w.ID == "" {
			e.logger.Warn("Skipping widget without ID", "canvas_id", canvasID, "widget_def_id", w.DefID)
			continue
		}
		node, ok := nodes.Lookup(w.ID)
		if !ok {
			nodes.Ensure(w, "")
			changed = true
			continue
		}
		if !slices.Equal(node.Inputs, w.Inputs) || !slices.Equal(node.Outputs, w.Outputs) {
			if nodes.Refresh(w) {
				changed = true
			}
		}
	}

	if !changed {
		return Result{Outcome: OutcomeUnchanged, Pipeline: p}, nil
	}
	if err := e.save(ctx, p); err != nil {
		return Result{}, err
	}
	e.logger.Debug("Synced widgets", "canvas_id", canvasID, "pipeline_id", p.ID, "nodes", nodes.Len())
	return Result{Outcome: OutcomeUpdated, Pipeline: p}, nil
}

// AutoWire suggests connections between a batch of new widgets and connects
// each suggestion. It stops at the first failed save.
func (e *Editor) AutoWire(ctx context.Context, canvasID string, widgets []pipeline.Widget) (AutoWireReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := AutoWireReport{Suggestions: pipeline.SuggestConnections(widgets)}
	byID := make(map[string]pipeline.Widget, len(widgets))
	for _, w := range widgets {
		byID[w.ID] = w
	}

	for _, s := range report.Suggestions {
		from := pipeline.WidgetPort{Widget: byID[s.FromWidgetID], Port: s.FromOutput}
		to := pipeline.WidgetPort{Widget: byID[s.ToWidgetID], Port: s.ToInput}
		result, err := e.connect(ctx, canvasID, from, to)
		e.record("auto_wire", result.Outcome, err)
		if err != nil {
			return report, err
		}
		switch result.Outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeDuplicate:
			report.Duplicates++
		default:
			report.Rejected++
		}
	}

	e.logger.Info("Auto-wired widgets",
		"canvas_id", canvasID,
		"widgets", len(widgets),
		"suggestions", len(report.Suggestions),
		"created", report.Created)
	return report, nil
}

// DeletePipeline removes a pipeline and announces the deletion
func (e *Editor) DeletePipeline(ctx context.Context, canvasID, pipelineID string) (result Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.record("delete_pipeline", result.Outcome, err) }()

	if err := e.store.Delete(ctx, canvasID, pipelineID); err != nil {
		if errors.Is(err, errors.ErrPipelineNotFound) {
			e.logger.Error("Pipeline not found", "canvas_id", canvasID, "pipeline_id", pipelineID)
			return Result{Outcome: OutcomeNotFound}, nil
		}
		return Result{}, err
	}
	e.publish(ctx, eventbus.Deleted(canvasID, pipelineID, e.now()))
	e.logger.Info("Deleted pipeline", "canvas_id", canvasID, "pipeline_id", pipelineID)
	return Result{Outcome: OutcomeRemoved}, nil
}

// canvasPipeline loads the first pipeline of the canvas, or starts an
// unsaved one with version 0.
func (e *Editor) canvasPipeline(ctx context.Context, canvasID string) (*pipeline.Pipeline, error) {
	pipelines, err := e.store.ListForCanvas(ctx, canvasID)
	if err != nil {
		return nil, errors.WrapTransient(err, "wiring", "canvasPipeline", "list canvas pipelines")
	}
	if len(pipelines) > 0 {
		return pipelines[0], nil
	}

	p, err := pipeline.New(e.defaultName, canvasID,
		pipeline.WithIDGenerator(e.ids),
		pipeline.WithLogger(e.logger),
		pipeline.WithClock(e.now)).Build()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Creating canvas pipeline", "canvas_id", canvasID, "pipeline_id", p.ID, "name", p.Name)
	return p, nil
}

// save persists p and announces it. Publish failures are logged only since
// the change is already committed.
func (e *Editor) save(ctx context.Context, p *pipeline.Pipeline) error {
	if err := e.store.Save(ctx, p); err != nil {
		e.logger.Error("Failed to save pipeline",
			"canvas_id", p.CanvasID, "pipeline_id", p.ID, "version", p.Version, "error", err)
		return err
	}
	e.publish(ctx, eventbus.Saved(p, e.now()))
	return nil
}

func (e *Editor) publish(ctx context.Context, ev eventbus.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, ev); err != nil {
		e.logger.Warn("Failed to publish pipeline event",
			"type", ev.Type, "canvas_id", ev.CanvasID, "pipeline_id", ev.PipelineID, "error", err)
	}
}

func (e *Editor) record(operation string, outcome Outcome, err error) {
	label := outcome.String()
	if err != nil {
		label = "error"
	}
	e.metrics.RecordWiring(operation, label)
}
