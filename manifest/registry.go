package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/pipeline"
)

// Provider resolves widget definitions by definition ID
type Provider interface {
	Lookup(defID string) (Definition, bool)
}

// Registry is a thread-safe in-memory Provider
type Registry struct {
	defs   map[string]Definition
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		defs:   make(map[string]Definition),
		logger: logger,
	}
}

// Register adds or replaces a definition
func (r *Registry) Register(def Definition) error {
	if def.ID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: definition has empty ID", errors.ErrInvalidManifest), "Registry", "Register", "check ID")
	}
	if def.Manifest == nil {
		def.Manifest = UndeclaredManifest{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.ID]; exists {
		r.logger.Debug("Replacing widget definition", "def_id", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Lookup implements Provider
func (r *Registry) Lookup(defID string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[defID]
	return def, ok
}

// IDs returns the registered definition IDs in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir parses and registers every *.yaml, *.yml and *.json file directly
// inside dir. It stops at the first file that fails to parse and returns the
// number of definitions registered so far.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Registry", "LoadDir", "read manifest directory")
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, errors.WrapTransient(err, "Registry", "LoadDir", "read "+path)
		}
		def, err := Parse(data)
		if err != nil {
			return loaded, fmt.Errorf("%s: %w", path, err)
		}
		if err := r.Register(def); err != nil {
			return loaded, err
		}
		loaded++
	}

	r.logger.Info("Loaded widget definitions", "dir", dir, "count", loaded)
	return loaded, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Describe builds the graph-layer view of a widget instance. Unknown
// definitions are described with the undeclared single input/output pair.
func (r *Registry) Describe(instanceID, defID string) pipeline.Widget {
	return Describe(r, instanceID, defID)
}

// Describe resolves defID through any provider and normalizes its ports
func Describe(p Provider, instanceID, defID string) pipeline.Widget {
	var m Manifest = UndeclaredManifest{}
	if p != nil {
		if def, ok := p.Lookup(defID); ok && def.Manifest != nil {
			m = def.Manifest
		}
	}
	inputs, outputs := Normalize(m)
	return pipeline.Widget{
		ID:      instanceID,
		DefID:   defID,
		Inputs:  inputs,
		Outputs: outputs,
	}
}
