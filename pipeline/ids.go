package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDKind is the entity an ID is generated for
type IDKind string

// IDKind constants
const (
	KindPipeline   IDKind = "pipeline"
	KindNode       IDKind = "node"
	KindConnection IDKind = "conn"
)

// IDGenerator is a collision-resistant source of unique IDs
type IDGenerator interface {
	NewID(kind IDKind) string
}

// UUIDGenerator generates "<kind>-<uuid>" identifiers
type UUIDGenerator struct{}

// NewID implements IDGenerator
func (UUIDGenerator) NewID(kind IDKind) string {
	return fmt.Sprintf("%s-%s", kind, uuid.New().String())
}

// SequenceGenerator generates "<kind>-<n>" identifiers with one counter per
// kind. It is deterministic and meant for tests and fixtures.
type SequenceGenerator struct {
	mu       sync.Mutex
	counters map[IDKind]int
}

// NewSequenceGenerator creates a generator whose counters start at 1
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{counters: make(map[IDKind]int)}
}

// NewID implements IDGenerator
func (g *SequenceGenerator) NewID(kind IDKind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[kind]++
	return fmt.Sprintf("%s-%d", kind, g.counters[kind])
}

func defaultIDs(ids IDGenerator) IDGenerator {
	if ids == nil {
		return UUIDGenerator{}
	}
	return ids
}
