package pipelinestore

import (
	"context"
	"sync"
	"time"

	"github.com/c360/widgetflow/pipeline"
)

// MemoryStore is an in-process Gateway with the same version semantics as
// KVStore. Stored pipelines are copies; callers never share memory with it.
type MemoryStore struct {
	pipelines map[string]*pipeline.Pipeline
	now       func() time.Time
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pipelines: make(map[string]*pipeline.Pipeline),
		now:       time.Now,
	}
}

// ListForCanvas implements Gateway
func (s *MemoryStore) ListForCanvas(_ context.Context, canvasID string) ([]*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*pipeline.Pipeline
	for _, p := range s.pipelines {
		if p.CanvasID == canvasID {
			out = append(out, p.Clone())
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// Get implements Gateway
func (s *MemoryStore) Get(_ context.Context, canvasID, id string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pipelines[storageKey(canvasID, id)]
	if !ok {
		return nil, notFound(canvasID, id, "MemoryStore", "Get")
	}
	return p.Clone(), nil
}

// Save implements Gateway
func (s *MemoryStore) Save(_ context.Context, p *pipeline.Pipeline) error {
	if err := checkSavable(p, "MemoryStore"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(p.CanvasID, p.ID)
	var stored int64
	if current, ok := s.pipelines[key]; ok {
		stored = current.Version
	}
	if p.Version != stored {
		return versionConflict(p.ID, stored, p.Version, "MemoryStore")
	}

	saved := p.Clone()
	saved.Version = stored + 1
	saved.Touch(s.now())
	s.pipelines[key] = saved

	p.Version = saved.Version
	p.CreatedAt, p.UpdatedAt = saved.CreatedAt, saved.UpdatedAt
	return nil
}

// Delete implements Gateway
func (s *MemoryStore) Delete(_ context.Context, canvasID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(canvasID, id)
	if _, ok := s.pipelines[key]; !ok {
		return notFound(canvasID, id, "MemoryStore", "Delete")
	}
	delete(s.pipelines, key)
	return nil
}
