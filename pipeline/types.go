package pipeline

import (
	"fmt"
	"time"
)

// NodeType distinguishes widget-bound nodes from system and transform nodes
type NodeType string

// NodeType constants
const (
	NodeTypeWidget    NodeType = "widget"
	NodeTypeTransform NodeType = "transform"
	NodeTypeSystem    NodeType = "system"
)

// Direction for data flow through a port
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// AnyType is the untyped default for ports that declare no type
const AnyType = "any"

// Pipeline is one canvas-scoped data-flow graph of nodes and connections.
// A pipeline owns its nodes and connections; widgets are referenced by ID only.
type Pipeline struct {
	ID          string `json:"id"`
	CanvasID    string `json:"canvas_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`

	// Version for optimistic concurrency control, 0 until first save
	Version int64 `json:"version,omitempty"`

	Nodes       []*Node      `json:"nodes"`
	Connections []Connection `json:"connections"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is a graph vertex bound to zero or one widget instance
type Node struct {
	ID string `json:"id"`

	// WidgetInstanceID is empty for system and transform nodes
	WidgetInstanceID string   `json:"widget_instance_id,omitempty"`
	Type             NodeType `json:"type"`
	Position         Position `json:"position"` // layout only, no routing effect
	Label            string   `json:"label,omitempty"`

	// Cached port declarations of the bound widget
	Inputs  []Port `json:"inputs,omitempty"`
	Outputs []Port `json:"outputs,omitempty"`
}

// Position represents canvas coordinates for a node
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Port is a named, typed attachment point on a node
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
}

// Endpoint references one port of one node
type Endpoint struct {
	NodeID   string `json:"node_id"`
	PortName string `json:"port_name"`
}

// Connection is a directed edge from an output port to an input port
type Connection struct {
	ID      string   `json:"id"`
	From    Endpoint `json:"from"`
	To      Endpoint `json:"to"`
	Enabled *bool    `json:"enabled,omitempty"` // nil means enabled
}

// ConnectionKey is the endpoint identity of a connection.
// No two connections in a pipeline may share a key.
type ConnectionKey struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
}

// String renders the key as "from.node:port->to.node:port"
func (k ConnectionKey) String() string {
	return fmt.Sprintf("%s:%s->%s:%s", k.FromNode, k.FromPort, k.ToNode, k.ToPort)
}

// Key returns the endpoint identity of the connection
func (c Connection) Key() ConnectionKey {
	return ConnectionKey{
		FromNode: c.From.NodeID,
		FromPort: c.From.PortName,
		ToNode:   c.To.NodeID,
		ToPort:   c.To.PortName,
	}
}

// IsEnabled reports whether the connection carries events
func (c Connection) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Widget is a widget instance as seen by the graph layer, with its ports
// already normalized.
type Widget struct {
	ID      string `json:"id"`
	DefID   string `json:"widget_def_id"`
	Inputs  []Port `json:"inputs,omitempty"`
	Outputs []Port `json:"outputs,omitempty"`
}

// WidgetPort names one port of one widget
type WidgetPort struct {
	Widget Widget `json:"widget"`
	Port   string `json:"port"`
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Inputs = clonePorts(n.Inputs)
	c.Outputs = clonePorts(n.Outputs)
	return &c
}

// Clone returns a deep copy of the pipeline. Nodes and connections of the
// copy share no memory with the original.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	c := *p
	c.Nodes = make([]*Node, len(p.Nodes))
	for i, n := range p.Nodes {
		c.Nodes[i] = n.Clone()
	}
	c.Connections = make([]Connection, len(p.Connections))
	for i, conn := range p.Connections {
		c.Connections[i] = conn.clone()
	}
	return &c
}

func (c Connection) clone() Connection {
	if c.Enabled != nil {
		enabled := *c.Enabled
		c.Enabled = &enabled
	}
	return c
}

func clonePorts(ports []Port) []Port {
	if ports == nil {
		return nil
	}
	out := make([]Port, len(ports))
	copy(out, ports)
	return out
}

// NodeByID returns the node with the given ID
func (p *Pipeline) NodeByID(id string) (*Node, bool) {
	for _, n := range p.Nodes {
		if n != nil && n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NodeByWidget returns the node bound to the given widget instance
func (p *Pipeline) NodeByWidget(widgetID string) (*Node, bool) {
	if widgetID == "" {
		return nil, false
	}
	for _, n := range p.Nodes {
		if n != nil && n.WidgetInstanceID == widgetID {
			return n, true
		}
	}
	return nil, false
}

// HasConnection reports whether a connection with the given key exists
func (p *Pipeline) HasConnection(key ConnectionKey) bool {
	for _, c := range p.Connections {
		if c.Key() == key {
			return true
		}
	}
	return false
}

// AddConnection appends conn unless a connection with the same key already
// exists. Duplicates are dropped silently and reported by the return value.
func (p *Pipeline) AddConnection(conn Connection) bool {
	if p.HasConnection(conn.Key()) {
		return false
	}
	p.Connections = append(p.Connections, conn)
	return true
}

// RemoveConnection removes the connection with the given ID
func (p *Pipeline) RemoveConnection(id string) bool {
	for i, c := range p.Connections {
		if c.ID == id {
			p.Connections = append(p.Connections[:i], p.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveConnectionsByKey removes every connection matching key, regardless
// of its enabled state, and returns how many were removed.
func (p *Pipeline) RemoveConnectionsByKey(key ConnectionKey) int {
	kept := p.Connections[:0]
	removed := 0
	for _, c := range p.Connections {
		if c.Key() == key {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	p.Connections = kept
	return removed
}

// RemoveNode deletes a node and cascades to every connection referencing it
// on either side. It returns the removed connections.
func (p *Pipeline) RemoveNode(id string) ([]Connection, bool) {
	idx := -1
	for i, n := range p.Nodes {
		if n != nil && n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	p.Nodes = append(p.Nodes[:idx], p.Nodes[idx+1:]...)

	var removed []Connection
	kept := p.Connections[:0]
	for _, c := range p.Connections {
		if c.From.NodeID == id || c.To.NodeID == id {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	p.Connections = kept
	return removed, true
}

// Touch sets UpdatedAt, and CreatedAt when it is still zero
func (p *Pipeline) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}
