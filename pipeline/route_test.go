package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	p := sampleGraph()
	disabled := false
	p.Connections[2].Enabled = &disabled

	assert.Equal(t, []Endpoint{{"n2", "in"}}, Route(p, Endpoint{"n1", "out"}))
	assert.Empty(t, Route(p, Endpoint{"n1", "other"}))
	assert.Empty(t, Route(p, Endpoint{"n3", "out"}))

	p.Connections[2].Enabled = nil
	assert.Equal(t, []Endpoint{{"n2", "in"}, {"n3", "in"}}, Route(p, Endpoint{"n1", "out"}))

	p.Enabled = false
	assert.Nil(t, Route(p, Endpoint{"n1", "out"}))
	assert.Nil(t, Route(nil, Endpoint{"n1", "out"}))
}

func TestRouteWidget(t *testing.T) {
	p := sampleGraph()
	p.Nodes = append(p.Nodes, &Node{ID: "sink", Type: NodeTypeSystem})
	p.AddConnection(Connection{ID: "c9", From: Endpoint{"n1", "out"}, To: Endpoint{"sink", "log"}})

	targets := RouteWidget(p, "A", "out")
	assert.Equal(t, []Endpoint{{"B", "in"}, {"C", "in"}, {"sink", "log"}}, targets)

	assert.Nil(t, RouteWidget(p, "missing", "out"))
	assert.Equal(t, Endpoint{"n2", "in"}, p.Connections[0].To, "routing does not rewrite the pipeline")
}
