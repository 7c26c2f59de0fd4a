package pipelinestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/pipeline"
)

// Gateway persists pipelines per canvas. Save and Delete are atomic per
// pipeline; no ordering is guaranteed between pipelines.
type Gateway interface {
	// ListForCanvas returns the canvas pipelines oldest first
	ListForCanvas(ctx context.Context, canvasID string) ([]*pipeline.Pipeline, error)
	Get(ctx context.Context, canvasID, id string) (*pipeline.Pipeline, error)
	// Save stores p and sets p.Version to the stored version
	Save(ctx context.Context, p *pipeline.Pipeline) error
	Delete(ctx context.Context, canvasID, id string) error
}

// SaveResult is the wire form of a save outcome
type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResultOf converts a Save error into a SaveResult
func ResultOf(err error) SaveResult {
	if err != nil {
		return SaveResult{Error: err.Error()}
	}
	return SaveResult{Success: true}
}

// SchemaVersion is the record layout written by this package
const SchemaVersion = 1

// Record is the persisted envelope around a pipeline
type Record struct {
	SchemaVersion int                `json:"schema_version"`
	Pipeline      *pipeline.Pipeline `json:"pipeline"`
}

// EncodeRecord wraps p in a current-version record
func EncodeRecord(p *pipeline.Pipeline) ([]byte, error) {
	data, err := json.Marshal(Record{SchemaVersion: SchemaVersion, Pipeline: p})
	if err != nil {
		return nil, errors.WrapFatal(err, "pipelinestore", "EncodeRecord", "marshal record")
	}
	return data, nil
}

// DecodeRecord unwraps a record, refusing layouts it does not know
func DecodeRecord(data []byte) (*pipeline.Pipeline, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.WrapFatal(err, "pipelinestore", "DecodeRecord", "unmarshal record")
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %d", errors.ErrUnknownSchemaVersion, rec.SchemaVersion),
			"pipelinestore", "DecodeRecord", "check schema version")
	}
	if rec.Pipeline == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("record has no pipeline"), "pipelinestore", "DecodeRecord", "check payload")
	}
	return rec.Pipeline, nil
}

// checkSavable rejects pipelines that must never reach storage
func checkSavable(p *pipeline.Pipeline, component string) error {
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidPipeline, component, "Save", "pipeline cannot be nil")
	}
	if err := checkIDs(p.CanvasID, p.ID, component, "Save"); err != nil {
		return err
	}
	return pipeline.Validate(p)
}

// checkIDs enforces identifiers usable as KV key tokens
func checkIDs(canvasID, id, component, method string) error {
	for _, v := range []struct{ name, value string }{{"canvas ID", canvasID}, {"pipeline ID", id}} {
		if v.value == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s cannot be empty", errors.ErrInvalidPipeline, v.name), component, method, "check IDs")
		}
		if !validToken(v.value) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s %q contains unsupported characters", errors.ErrInvalidPipeline, v.name, v.value),
				component, method, "check IDs")
		}
	}
	return nil
}

func validToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '=':
		default:
			return false
		}
	}
	return true
}

func storageKey(canvasID, id string) string {
	return canvasID + "." + id
}

func canvasPrefix(canvasID string) string {
	return canvasID + "."
}

func splitKey(key string) (canvasID, id string, ok bool) {
	return strings.Cut(key, ".")
}

// sortOldestFirst orders by creation time, then ID
func sortOldestFirst(pipelines []*pipeline.Pipeline) {
	sort.SliceStable(pipelines, func(i, j int) bool {
		a, b := pipelines[i], pipelines[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func notFound(canvasID, id, component, method string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrPipelineNotFound, storageKey(canvasID, id)), component, method, "lookup")
}

func versionConflict(id string, stored, given int64, component string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: pipeline %s is at version %d, save was based on %d", errors.ErrVersionConflict, id, stored, given),
		component, "Save", "conflict: pipeline was modified by another editor")
}
