package pipelinestore

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/natsclient"
	"github.com/c360/widgetflow/pipeline"
)

// DefaultBucket is the KV bucket used when none is configured
const DefaultBucket = "widgetflow_pipelines"

// KVConfig configures NewKVStore
type KVConfig struct {
	Bucket  string
	History uint8 // revisions kept per pipeline
}

// KVStore persists pipeline records in a NATS KV bucket under
// "<canvas>.<pipeline>" keys. Version checks ride on KV revisions, so two
// writers racing on the same version cannot both succeed.
type KVStore struct {
	kv     *natsclient.KVStore
	logger *slog.Logger
	now    func() time.Time
}

// NewKVStore opens or creates the bucket
func NewKVStore(ctx context.Context, client *natsclient.Client, cfg KVConfig, logger *slog.Logger) (*KVStore, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "KVStore", "NewKVStore", "nats client cannot be nil")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.History == 0 {
		cfg.History = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Widget pipeline graphs per canvas",
		History:     cfg.History,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "NewKVStore", "create KV bucket")
	}

	return &KVStore{
		kv:     client.NewKVStore(bucket),
		logger: logger.With("component", "pipelinestore", "bucket", cfg.Bucket),
		now:    time.Now,
	}, nil
}

// ListForCanvas implements Gateway
func (s *KVStore) ListForCanvas(ctx context.Context, canvasID string) ([]*pipeline.Pipeline, error) {
	keys, err := s.kv.Keys(ctx, canvasPrefix(canvasID))
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "ListForCanvas", "list KV keys")
	}

	pipelines := make([]*pipeline.Pipeline, 0, len(keys))
	for _, key := range keys {
		keyCanvas, id, ok := splitKey(key)
		if !ok || keyCanvas != canvasID {
			continue
		}
		p, err := s.Get(ctx, canvasID, id)
		if err != nil {
			if errors.Is(err, errors.ErrPipelineNotFound) {
				// Deleted between listing and reading
				continue
			}
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	sortOldestFirst(pipelines)
	return pipelines, nil
}

// Get implements Gateway
func (s *KVStore) Get(ctx context.Context, canvasID, id string) (*pipeline.Pipeline, error) {
	if err := checkIDs(canvasID, id, "KVStore", "Get"); err != nil {
		return nil, err
	}
	p, _, err := s.load(ctx, canvasID, id, "Get")
	return p, err
}

func (s *KVStore) load(ctx context.Context, canvasID, id, method string) (*pipeline.Pipeline, uint64, error) {
	entry, err := s.kv.Get(ctx, storageKey(canvasID, id))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, 0, notFound(canvasID, id, "KVStore", method)
		}
		return nil, 0, errors.WrapTransient(err, "KVStore", method, "get from KV")
	}
	p, err := DecodeRecord(entry.Value)
	if err != nil {
		return nil, 0, err
	}
	return p, entry.Revision, nil
}

// Save implements Gateway
func (s *KVStore) Save(ctx context.Context, p *pipeline.Pipeline) error {
	if err := checkSavable(p, "KVStore"); err != nil {
		return err
	}

	current, revision, err := s.load(ctx, p.CanvasID, p.ID, "Save")
	if err != nil && !errors.Is(err, errors.ErrPipelineNotFound) {
		return err
	}
	var stored int64
	if current != nil {
		stored = current.Version
	}
	if p.Version != stored {
		return versionConflict(p.ID, stored, p.Version, "KVStore")
	}

	saved := p.Clone()
	saved.Version = stored + 1
	saved.Touch(s.now())
	data, err := EncodeRecord(saved)
	if err != nil {
		return err
	}

	key := storageKey(p.CanvasID, p.ID)
	if current == nil {
		_, err = s.kv.Create(ctx, key, data)
	} else {
		_, err = s.kv.Update(ctx, key, data, revision)
	}
	if err != nil {
		if natsclient.IsKVConflictError(err) {
			return versionConflict(p.ID, stored+1, p.Version, "KVStore")
		}
		return errors.WrapTransient(err, "KVStore", "Save", "write to KV")
	}

	s.logger.Debug("Saved pipeline", "canvas_id", p.CanvasID, "pipeline_id", p.ID, "version", saved.Version)
	p.Version = saved.Version
	p.CreatedAt, p.UpdatedAt = saved.CreatedAt, saved.UpdatedAt
	return nil
}

// Delete implements Gateway
func (s *KVStore) Delete(ctx context.Context, canvasID, id string) error {
	if err := checkIDs(canvasID, id, "KVStore", "Delete"); err != nil {
		return err
	}
	// KV deletes of missing keys succeed silently, so check first
	if _, _, err := s.load(ctx, canvasID, id, "Delete"); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, storageKey(canvasID, id)); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return notFound(canvasID, id, "KVStore", "Delete")
		}
		return errors.WrapTransient(err, "KVStore", "Delete", "delete from KV")
	}
	s.logger.Debug("Deleted pipeline", "canvas_id", canvasID, "pipeline_id", id)
	return nil
}
