package wiring

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/pipelinestore"
)

const canvas = "canvas-1"

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	editor  *Editor
	store   *pipelinestore.MemoryStore
	events  []eventbus.Event
	metrics *metric.Metrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{store: pipelinestore.NewMemoryStore(), metrics: metric.NewMetrics()}
	bus := eventbus.NewMemoryBus(nil)
	_, err := bus.Subscribe(func(_ context.Context, ev eventbus.Event) { f.events = append(f.events, ev) })
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.editor = NewEditor(f.store, bus, pipeline.NewSequenceGenerator(), nil, f.metrics, opts...)
	return f
}

func (f *fixture) stored(t *testing.T) []*pipeline.Pipeline {
	t.Helper()
	list, err := f.store.ListForCanvas(context.Background(), canvas)
	require.NoError(t, err)
	return list
}

func widget(id string, inputs, outputs []string) pipeline.Widget {
	w := pipeline.Widget{ID: id, DefID: "def-" + id}
	for _, name := range inputs {
		w.Inputs = append(w.Inputs, pipeline.Port{Name: name, Direction: pipeline.DirectionInput, Type: "any"})
	}
	for _, name := range outputs {
		w.Outputs = append(w.Outputs, pipeline.Port{Name: name, Direction: pipeline.DirectionOutput, Type: "any"})
	}
	return w
}

var (
	timer   = widget("timer", nil, []string{"tick"})
	counter = widget("counter", []string{"tick", "reset"}, []string{"count"})
	display = widget("display", []string{"count"}, nil)
)

func port(w pipeline.Widget, name string) pipeline.WidgetPort {
	return pipeline.WidgetPort{Widget: w, Port: name}
}

func TestConnectCreatesCanvasPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)
	require.NotNil(t, result.Connection)

	list := f.stored(t)
	require.Len(t, list, 1)
	p := list[0]
	assert.Equal(t, DefaultPipelineName, p.Name)
	assert.Equal(t, int64(1), p.Version)
	require.Len(t, p.Nodes, 2)
	require.Len(t, p.Connections, 1)

	timerNode, ok := p.NodeByWidget("timer")
	require.True(t, ok)
	counterNode, ok := p.NodeByWidget("counter")
	require.True(t, ok)
	assert.Equal(t, pipeline.Endpoint{NodeID: timerNode.ID, PortName: "tick"}, p.Connections[0].From)
	assert.Equal(t, pipeline.Endpoint{NodeID: counterNode.ID, PortName: "tick"}, p.Connections[0].To)
	assert.Equal(t, timer.Outputs, timerNode.Outputs, "node caches the widget ports")

	require.Len(t, f.events, 1)
	assert.Equal(t, eventbus.Event{
		Type: eventbus.TypePipelineSaved, CanvasID: canvas, PipelineID: p.ID, Version: 1, Timestamp: fixedNow,
	}, f.events[0])
}

func TestConnectTargetsFirstPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)
	result, err := f.editor.Connect(ctx, canvas, port(counter, "count"), port(display, "count"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)

	list := f.stored(t)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Nodes, 3, "counter keeps one node")
	assert.Len(t, list[0].Connections, 2)
	assert.Equal(t, int64(2), list[0].Version)
}

func TestConnectByReferenceKeepsCachedPorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)

	result, err := f.editor.Connect(ctx, canvas,
		port(pipeline.Widget{ID: "counter"}, "count"), port(display, "count"))
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)

	p := f.stored(t)[0]
	counterNode, ok := p.NodeByWidget("counter")
	require.True(t, ok)
	assert.Equal(t, counter.Inputs, counterNode.Inputs)
	assert.Equal(t, counter.Outputs, counterNode.Outputs)

	displayNode, ok := p.NodeByWidget("display")
	require.True(t, ok)
	assert.Equal(t, display.Inputs, displayNode.Inputs)

	result, err = f.editor.SyncWidgets(ctx, canvas, []pipeline.Widget{{ID: "timer"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, result.Outcome)
	timerNode, ok := result.Pipeline.NodeByWidget("timer")
	require.True(t, ok)
	assert.Equal(t, timer.Outputs, timerNode.Outputs)
}

func TestConnectRejections(t *testing.T) {
	tests := []struct {
		name     string
		from, to pipeline.WidgetPort
		want     Outcome
	}{
		{"self connection", port(counter, "count"), port(counter, "reset"), OutcomeSelfConnection},
		{"missing source widget", port(pipeline.Widget{}, "tick"), port(counter, "tick"), OutcomeMissingWidget},
		{"missing target widget", port(timer, "tick"), port(pipeline.Widget{}, "tick"), OutcomeMissingWidget},
		{"missing port", port(timer, ""), port(counter, "tick"), OutcomeMissingWidget},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			result, err := f.editor.Connect(context.Background(), canvas, test.from, test.to)
			require.NoError(t, err)
			assert.Equal(t, test.want, result.Outcome)
			assert.Empty(t, f.stored(t), "nothing is persisted")
			assert.Empty(t, f.events)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WiringOperations.WithLabelValues("connect", test.want.String())))
		})
	}
}

func TestConnectDuplicateIsNotSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)
	result, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	assert.Nil(t, result.Connection)
	assert.Len(t, f.events, 1)
	assert.Equal(t, int64(1), f.stored(t)[0].Version)
}

type failingStore struct {
	pipelinestore.Gateway
	err error
}

func (s failingStore) Save(context.Context, *pipeline.Pipeline) error { return s.err }

func TestConnectSaveFailureCommitsNothing(t *testing.T) {
	store := pipelinestore.NewMemoryStore()
	bus := eventbus.NewMemoryBus(nil)
	published := 0
	_, err := bus.Subscribe(func(context.Context, eventbus.Event) { published++ })
	require.NoError(t, err)

	saveErr := errors.WrapTransient(errors.ErrStorageUnavailable, "test", "Save", "write")
	editor := NewEditor(failingStore{Gateway: store, err: saveErr}, bus, pipeline.NewSequenceGenerator(), nil, nil)

	_, err = editor.Connect(context.Background(), canvas, port(timer, "tick"), port(counter, "tick"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	assert.Zero(t, published)

	list, err := store.ListForCanvas(context.Background(), canvas)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConnectReportsVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)

	// Another editor saves in between
	other := NewEditor(f.store, nil, pipeline.NewSequenceGenerator(), nil, nil)
	stale := f.stored(t)[0]
	_, err = other.Connect(ctx, canvas, port(counter, "count"), port(display, "count"))
	require.NoError(t, err)

	stale.Name = "renamed"
	err = f.store.Save(ctx, stale)
	assert.True(t, errors.Is(err, errors.ErrVersionConflict))
}

func TestDeleteConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)

	result, err := f.editor.DeleteConnection(ctx, canvas, created.Connection.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, result.Outcome)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, created.Connection.ID, result.Removed[0].ID)

	p := f.stored(t)[0]
	assert.Empty(t, p.Connections)
	assert.Len(t, p.Nodes, 2, "nodes survive connection removal")
	assert.Len(t, f.events, 2)

	result, err = f.editor.DeleteConnection(ctx, canvas, created.Connection.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
	assert.Len(t, f.events, 2)
}

func TestDeleteNodeCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)
	_, err = f.editor.Connect(ctx, canvas, port(counter, "count"), port(display, "count"))
	require.NoError(t, err)

	node, ok := f.stored(t)[0].NodeByWidget("counter")
	require.True(t, ok)

	result, err := f.editor.DeleteNode(ctx, canvas, node.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, result.Outcome)
	assert.Len(t, result.Removed, 2)

	p := f.stored(t)[0]
	assert.Len(t, p.Nodes, 2)
	assert.Empty(t, p.Connections)
	assert.Empty(t, pipeline.ValidatePipeline(p))

	result, err = f.editor.DeleteNode(ctx, canvas, node.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
}

func TestSyncWidgets(t *testing.T) {
	f := newFixture(t, WithDefaultPipelineName("Synced"))
	ctx := context.Background()

	result, err := f.editor.SyncWidgets(ctx, canvas, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, result.Outcome)
	assert.Empty(t, f.stored(t), "no widgets, no pipeline")

	result, err = f.editor.SyncWidgets(ctx, canvas, []pipeline.Widget{timer, counter, {DefID: "anonymous"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	p := f.stored(t)[0]
	assert.Equal(t, "Synced", p.Name)
	assert.Len(t, p.Nodes, 2)

	result, err = f.editor.SyncWidgets(ctx, canvas, []pipeline.Widget{timer, counter})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, result.Outcome)
	assert.Len(t, f.events, 1)

	upgraded := widget("counter", []string{"tick", "reset", "step"}, []string{"count"})
	result, err = f.editor.SyncWidgets(ctx, canvas, []pipeline.Widget{upgraded})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)

	node, ok := f.stored(t)[0].NodeByWidget("counter")
	require.True(t, ok)
	assert.Len(t, node.Inputs, 3)
}

func TestAutoWire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.editor.AutoWire(ctx, canvas, []pipeline.Widget{timer, counter, display})
	require.NoError(t, err)
	require.Len(t, report.Suggestions, 2)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Duplicates)

	p := f.stored(t)[0]
	assert.Len(t, p.Connections, 2)
	assert.Len(t, p.Nodes, 3)

	again, err := f.editor.AutoWire(ctx, canvas, []pipeline.Widget{timer, counter, display})
	require.NoError(t, err)
	assert.Equal(t, 2, again.Duplicates)
	assert.Len(t, f.stored(t)[0].Connections, 2)
}

func TestDeletePipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.editor.Connect(ctx, canvas, port(timer, "tick"), port(counter, "tick"))
	require.NoError(t, err)

	result, err := f.editor.DeletePipeline(ctx, canvas, created.Pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, result.Outcome)
	assert.Empty(t, f.stored(t))
	require.Len(t, f.events, 2)
	assert.Equal(t, eventbus.TypePipelineDeleted, f.events[1].Type)

	result, err = f.editor.DeletePipeline(ctx, canvas, created.Pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "self_connection", OutcomeSelfConnection.String())
	assert.Equal(t, "unknown", Outcome(99).String())
	assert.Equal(t, OutcomeUnknown, Result{}.Outcome)
	assert.Equal(t, "unknown", Result{}.Outcome.String())
	assert.False(t, Result{}.Outcome.Committed(), "an empty result saved nothing")
	assert.True(t, OutcomeCreated.Committed())
	assert.False(t, OutcomeDuplicate.Committed())

	text, err := OutcomeNotFound.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "not_found", string(text))
}
