package pipeline

// Route returns the input endpoints an emission on the given output
// endpoint is delivered to: every enabled connection leaving it, in
// declaration order. Disabled pipelines route nothing.
func Route(p *Pipeline, from Endpoint) []Endpoint {
	if p == nil || !p.Enabled {
		return nil
	}
	var targets []Endpoint
	for _, c := range p.Connections {
		if c.From == from && c.IsEnabled() {
			targets = append(targets, c.To)
		}
	}
	return targets
}

// RouteWidget resolves the widget's node and routes from its output port.
// Targets are reported as widget instance IDs with their input port; system
// nodes are reported by node ID.
func RouteWidget(p *Pipeline, widgetID, outputPort string) []Endpoint {
	if p == nil {
		return nil
	}
	node, ok := p.NodeByWidget(widgetID)
	if !ok {
		return nil
	}
	targets := Route(p, Endpoint{NodeID: node.ID, PortName: outputPort})
	for i, t := range targets {
		if target, ok := p.NodeByID(t.NodeID); ok && target.WidgetInstanceID != "" {
			targets[i].NodeID = target.WidgetInstanceID
		}
	}
	return targets
}
