package pipeline

import (
	"fmt"
	"strings"

	"github.com/c360/widgetflow/errors"
)

// ValidatePipeline checks the structural well-formedness of a pipeline and
// returns one human-readable problem per violation. An empty result means
// the pipeline may be persisted. The pipeline is never modified.
func ValidatePipeline(p *Pipeline) []string {
	if p == nil {
		return []string{"pipeline is nil"}
	}

	var problems []string

	nodes := make(map[string]*Node, len(p.Nodes))
	widgets := make(map[string]string, len(p.Nodes))
	for i, node := range p.Nodes {
		if node == nil {
			problems = append(problems, fmt.Sprintf("node at index %d is nil", i))
			continue
		}
		if node.ID == "" {
			problems = append(problems, fmt.Sprintf("node at index %d has empty ID", i))
			continue
		}
		if _, dup := nodes[node.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate node ID: %s", node.ID))
			continue
		}
		nodes[node.ID] = node

		if node.WidgetInstanceID == "" {
			continue
		}
		if other, dup := widgets[node.WidgetInstanceID]; dup {
			problems = append(problems, fmt.Sprintf(
				"widget %s is bound to nodes %s and %s", node.WidgetInstanceID, other, node.ID))
			continue
		}
		widgets[node.WidgetInstanceID] = node.ID
	}

	connIDs := make(map[string]bool, len(p.Connections))
	keys := make(map[ConnectionKey]string, len(p.Connections))
	for i, conn := range p.Connections {
		label := conn.ID
		switch {
		case conn.ID == "":
			label = fmt.Sprintf("#%d", i)
			problems = append(problems, fmt.Sprintf("connection at index %d has empty ID", i))
		case connIDs[conn.ID]:
			problems = append(problems, fmt.Sprintf("duplicate connection ID: %s", conn.ID))
		default:
			connIDs[conn.ID] = true
		}

		problems = append(problems, checkEndpoint(nodes, label, "source", conn.From, DirectionOutput)...)
		problems = append(problems, checkEndpoint(nodes, label, "target", conn.To, DirectionInput)...)

		key := conn.Key()
		if first, dup := keys[key]; dup {
			problems = append(problems, fmt.Sprintf(
				"connection '%s' duplicates connection '%s' (%s)", label, first, key))
			continue
		}
		keys[key] = label
	}

	return problems
}

func checkEndpoint(nodes map[string]*Node, conn, side string, ep Endpoint, dir Direction) []string {
	if ep.PortName == "" {
		return []string{fmt.Sprintf("connection '%s' has empty %s port", conn, side)}
	}
	node, ok := nodes[ep.NodeID]
	if !ok {
		return []string{fmt.Sprintf("connection '%s' references non-existent %s node: %s", conn, side, ep.NodeID)}
	}
	if !acceptsPort(node, ep.PortName, dir) {
		return []string{fmt.Sprintf("connection '%s' references unknown %s port '%s' on node %s",
			conn, dir, ep.PortName, node.ID)}
	}
	return nil
}

// acceptsPort reports whether the node can serve a port of that name in that
// direction. A node with no cached ports for the direction is untyped and
// accepts any name.
func acceptsPort(node *Node, name string, dir Direction) bool {
	ports := node.Inputs
	if dir == DirectionOutput {
		ports = node.Outputs
	}
	if len(ports) == 0 {
		return true
	}
	for _, port := range ports {
		if port.Name == name {
			return true
		}
	}
	return false
}

// Validate returns an invalid-class error listing every problem found by
// ValidatePipeline, or nil for a well-formed pipeline.
func Validate(p *Pipeline) error {
	problems := ValidatePipeline(p)
	if len(problems) == 0 {
		return nil
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidPipeline, strings.Join(problems, "; ")),
		"pipeline", "Validate", "structural validation")
}
