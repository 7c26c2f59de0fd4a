package pipeline

import (
	"slices"
	"time"
)

// MergeReport summarizes what a merge added and what it deduplicated
type MergeReport struct {
	NodesAdded         int `json:"nodes_added"`
	NodesReused        int `json:"nodes_reused"`
	ConnectionsAdded   int `json:"connections_added"`
	ConnectionsSkipped int `json:"connections_skipped"`
}

// Merger combines pipelines using its ID source and clock
type Merger struct {
	IDs IDGenerator
	Now func() time.Time
}

// NewMerger creates a merger with UUID identifiers and the wall clock
func NewMerger() *Merger {
	return &Merger{IDs: UUIDGenerator{}, Now: time.Now}
}

// MergePipelines merges addition into a copy of base with default settings
func MergePipelines(base, addition *Pipeline) *Pipeline {
	merged, _ := NewMerger().Merge(base, addition)
	return merged
}

// Merge combines addition into a copy of base. Nodes are deduplicated by
// widget instance, connections by endpoint identity after remapping. The
// nodes and connections of base keep their IDs and neither input is mutated.
// Merging a pipeline with itself adds nothing. Nil nodes on either side are
// dropped.
func (m *Merger) Merge(base, addition *Pipeline) (*Pipeline, MergeReport) {
	ids := defaultIDs(m.IDs)
	now := m.Now
	if now == nil {
		now = time.Now
	}

	if base == nil {
		base = &Pipeline{Nodes: []*Node{}, Connections: []Connection{}}
	}
	merged := base.Clone()
	merged.Nodes = slices.DeleteFunc(merged.Nodes, func(n *Node) bool { return n == nil })
	var report MergeReport
	if addition == nil {
		merged.UpdatedAt = now()
		return merged, report
	}

	// addition node ID -> merged node ID
	remap := make(map[string]string, len(addition.Nodes))
	for _, node := range addition.Nodes {
		if node == nil {
			continue
		}
		if existing, ok := matchNode(merged, node); ok {
			remap[node.ID] = existing.ID
			report.NodesReused++
			continue
		}

		clone := node.Clone()
		clone.ID = ids.NewID(KindNode)
		merged.Nodes = append(merged.Nodes, clone)
		remap[node.ID] = clone.ID
		report.NodesAdded++
	}

	for _, conn := range addition.Connections {
		resolved := conn.clone()
		resolved.From.NodeID = resolveNodeID(remap, conn.From.NodeID)
		resolved.To.NodeID = resolveNodeID(remap, conn.To.NodeID)

		if merged.HasConnection(resolved.Key()) {
			report.ConnectionsSkipped++
			continue
		}
		resolved.ID = ids.NewID(KindConnection)
		merged.Connections = append(merged.Connections, resolved)
		report.ConnectionsAdded++
	}

	merged.UpdatedAt = now()
	return merged, report
}

// matchNode finds the node of p that node from another pipeline denotes.
// Widget nodes match by widget instance; system and transform nodes have no
// widget identity and match only a node of the same ID that is also unbound.
func matchNode(p *Pipeline, node *Node) (*Node, bool) {
	if node.WidgetInstanceID != "" {
		return p.NodeByWidget(node.WidgetInstanceID)
	}
	existing, ok := p.NodeByID(node.ID)
	if !ok || existing.WidgetInstanceID != "" {
		return nil, false
	}
	return existing, true
}

func resolveNodeID(remap map[string]string, id string) string {
	if mapped, ok := remap[id]; ok {
		return mapped
	}
	return id
}
