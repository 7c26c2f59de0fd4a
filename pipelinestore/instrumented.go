package pipelinestore

import (
	"context"
	"time"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/pipeline"
)

type instrumented struct {
	next    Gateway
	metrics *metric.Metrics
}

// Instrumented records the result and duration of every call on next.
// A nil metrics value returns next unchanged.
func Instrumented(next Gateway, metrics *metric.Metrics) Gateway {
	if metrics == nil {
		return next
	}
	return &instrumented{next: next, metrics: metrics}
}

func (g *instrumented) record(operation string, start time.Time, err error) {
	g.metrics.RecordStoreOperation(operation, resultLabel(err), time.Since(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, errors.ErrPipelineNotFound):
		return "not_found"
	case errors.IsInvalid(err):
		return "invalid"
	default:
		return "error"
	}
}

func (g *instrumented) ListForCanvas(ctx context.Context, canvasID string) ([]*pipeline.Pipeline, error) {
	start := time.Now()
	pipelines, err := g.next.ListForCanvas(ctx, canvasID)
	g.record("list", start, err)
	return pipelines, err
}

func (g *instrumented) Get(ctx context.Context, canvasID, id string) (*pipeline.Pipeline, error) {
	start := time.Now()
	p, err := g.next.Get(ctx, canvasID, id)
	g.record("get", start, err)
	return p, err
}

func (g *instrumented) Save(ctx context.Context, p *pipeline.Pipeline) error {
	start := time.Now()
	err := g.next.Save(ctx, p)
	g.record("save", start, err)
	return err
}

func (g *instrumented) Delete(ctx context.Context, canvasID, id string) error {
	start := time.Now()
	err := g.next.Delete(ctx, canvasID, id)
	g.record("delete", start, err)
	return err
}
