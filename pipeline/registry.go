package pipeline

// Grid layout for freshly registered nodes. Purely cosmetic.
const (
	gridColumns = 4
	gridOriginX = 50
	gridOriginY = 50
	gridStepX   = 200
	gridStepY   = 150
)

// NodeRegistry maps widget instances to exactly one node of a pipeline,
// creating the node on first reference.
type NodeRegistry struct {
	pipeline *Pipeline
	ids      IDGenerator
	byWidget map[string]*Node
}

// NewNodeRegistry indexes the existing widget nodes of p. Nodes created by
// Ensure are appended to p.Nodes.
func NewNodeRegistry(p *Pipeline, ids IDGenerator) *NodeRegistry {
	r := &NodeRegistry{
		pipeline: p,
		ids:      defaultIDs(ids),
		byWidget: make(map[string]*Node, len(p.Nodes)),
	}
	for _, n := range p.Nodes {
		if n == nil || n.WidgetInstanceID == "" {
			continue
		}
		if _, seen := r.byWidget[n.WidgetInstanceID]; !seen {
			r.byWidget[n.WidgetInstanceID] = n
		}
	}
	return r
}

// Ensure returns the node bound to w, allocating it on first call. Repeated
// calls with the same widget ID return the same *Node. label defaults to the
// widget definition ID. A widget without an ID gets no node and Ensure
// returns nil.
func (r *NodeRegistry) Ensure(w Widget, label string) *Node {
	if w.ID == "" {
		return nil
	}
	if n, ok := r.byWidget[w.ID]; ok {
		return n
	}

	if label == "" {
		label = w.DefID
	}
	n := &Node{
		ID:               r.ids.NewID(KindNode),
		WidgetInstanceID: w.ID,
		Type:             NodeTypeWidget,
		Position:         GridPosition(len(r.pipeline.Nodes)),
		Label:            label,
		Inputs:           clonePorts(w.Inputs),
		Outputs:          clonePorts(w.Outputs),
	}
	r.pipeline.Nodes = append(r.pipeline.Nodes, n)
	r.byWidget[w.ID] = n
	return n
}

// Lookup returns the node bound to widgetID without creating one
func (r *NodeRegistry) Lookup(widgetID string) (*Node, bool) {
	n, ok := r.byWidget[widgetID]
	return n, ok
}

// Refresh replaces the cached ports of the widget's node and reports whether
// it did. A widget carrying no ports at all is a bare reference and leaves
// the cache alone.
func (r *NodeRegistry) Refresh(w Widget) bool {
	n, ok := r.byWidget[w.ID]
	if !ok || (len(w.Inputs) == 0 && len(w.Outputs) == 0) {
		return false
	}
	n.Inputs = clonePorts(w.Inputs)
	n.Outputs = clonePorts(w.Outputs)
	return true
}

// Len returns the number of nodes in the underlying pipeline
func (r *NodeRegistry) Len() int {
	return len(r.pipeline.Nodes)
}

// GridPosition places the count-th node on a four column grid
func GridPosition(count int) Position {
	return Position{
		X: float64(gridOriginX + (count%gridColumns)*gridStepX),
		Y: float64(gridOriginY + (count/gridColumns)*gridStepY),
	}
}
