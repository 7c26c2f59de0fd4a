package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/pipeline"
)

// Event types
const (
	TypePipelineSaved   = "pipeline:saved"
	TypePipelineDeleted = "pipeline:deleted"
)

// Event announces a committed pipeline change on a canvas
type Event struct {
	Type       string    `json:"type"`
	CanvasID   string    `json:"canvas_id"`
	PipelineID string    `json:"pipeline_id"`
	Version    int64     `json:"version,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Saved builds the event for a pipeline that was just persisted
func Saved(p *pipeline.Pipeline, now time.Time) Event {
	return Event{
		Type:       TypePipelineSaved,
		CanvasID:   p.CanvasID,
		PipelineID: p.ID,
		Version:    p.Version,
		Timestamp:  now,
	}
}

// Deleted builds the event for a removed pipeline
func Deleted(canvasID, pipelineID string, now time.Time) Event {
	return Event{
		Type:       TypePipelineDeleted,
		CanvasID:   canvasID,
		PipelineID: pipelineID,
		Timestamp:  now,
	}
}

// Validate checks that the event can be published
func (e Event) Validate() error {
	switch e.Type {
	case TypePipelineSaved, TypePipelineDeleted:
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown event type %q", e.Type), "Event", "Validate", "check type")
	}
	if e.CanvasID == "" || e.PipelineID == "" {
		return errors.WrapInvalid(fmt.Errorf("event requires canvas and pipeline IDs"), "Event", "Validate", "check IDs")
	}
	return nil
}

// Handler receives published events
type Handler func(ctx context.Context, ev Event)

// Bus publishes pipeline change events to subscribed editors
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers handler until the returned function is called
	Subscribe(handler Handler) (func(), error)
}
