package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWidget(id string) Widget {
	return Widget{ID: id, DefID: "def-" + id}
}

func portWidget(id string, inputs, outputs []string) Widget {
	w := testWidget(id)
	for _, name := range inputs {
		w.Inputs = append(w.Inputs, Port{Name: name, Direction: DirectionInput, Type: AnyType})
	}
	for _, name := range outputs {
		w.Outputs = append(w.Outputs, Port{Name: name, Direction: DirectionOutput, Type: AnyType})
	}
	return w
}

func TestNodeRegistryEnsure(t *testing.T) {
	t.Run("repeated calls return the same node", func(t *testing.T) {
		p := &Pipeline{}
		reg := NewNodeRegistry(p, NewSequenceGenerator())

		first := reg.Ensure(testWidget("a"), "")
		second := reg.Ensure(testWidget("a"), "other label")

		assert.Same(t, first, second)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, p.Nodes, 1)
		assert.Equal(t, "def-a", first.Label, "label is fixed at creation")
	})

	t.Run("new node defaults", func(t *testing.T) {
		p := &Pipeline{}
		reg := NewNodeRegistry(p, NewSequenceGenerator())

		node := reg.Ensure(portWidget("a", []string{"in"}, []string{"out"}), "")

		assert.Equal(t, "node-1", node.ID)
		assert.Equal(t, "a", node.WidgetInstanceID)
		assert.Equal(t, NodeTypeWidget, node.Type)
		assert.Equal(t, "def-a", node.Label)
		assert.Equal(t, Position{X: 50, Y: 50}, node.Position)
		require.Len(t, node.Inputs, 1)
		assert.Equal(t, "in", node.Inputs[0].Name)
		require.Len(t, node.Outputs, 1)
		assert.Equal(t, "out", node.Outputs[0].Name)
	})

	t.Run("explicit label", func(t *testing.T) {
		reg := NewNodeRegistry(&Pipeline{}, nil)
		node := reg.Ensure(testWidget("a"), "Weather")
		assert.Equal(t, "Weather", node.Label)
		assert.Contains(t, node.ID, "node-")
	})

	t.Run("existing pipeline nodes are reused", func(t *testing.T) {
		existing := &Node{ID: "n-existing", WidgetInstanceID: "a", Type: NodeTypeWidget}
		p := &Pipeline{Nodes: []*Node{existing}}
		reg := NewNodeRegistry(p, NewSequenceGenerator())

		assert.Same(t, existing, reg.Ensure(testWidget("a"), ""))
		assert.Len(t, p.Nodes, 1)
	})

	t.Run("widget without ID gets no node", func(t *testing.T) {
		p := &Pipeline{Nodes: []*Node{nil, {ID: "sys", Type: NodeTypeSystem}}}
		reg := NewNodeRegistry(p, NewSequenceGenerator())

		assert.Nil(t, reg.Ensure(Widget{DefID: "def"}, ""))
		assert.Len(t, p.Nodes, 2)
		_, ok := reg.Lookup("")
		assert.False(t, ok)
	})

	t.Run("cached ports are copied", func(t *testing.T) {
		w := portWidget("a", []string{"in"}, nil)
		reg := NewNodeRegistry(&Pipeline{}, nil)
		node := reg.Ensure(w, "")

		w.Inputs[0].Name = "mutated"
		assert.Equal(t, "in", node.Inputs[0].Name)
	})
}

func TestGridPosition(t *testing.T) {
	tests := []struct {
		count    int
		expected Position
	}{
		{0, Position{X: 50, Y: 50}},
		{1, Position{X: 250, Y: 50}},
		{3, Position{X: 650, Y: 50}},
		{4, Position{X: 50, Y: 200}},
		{9, Position{X: 250, Y: 350}},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, GridPosition(test.count), "count %d", test.count)
	}
}

func TestNodeRegistryPlacementCountsSystemNodes(t *testing.T) {
	p := &Pipeline{Nodes: []*Node{{ID: "sys", Type: NodeTypeSystem}}}
	reg := NewNodeRegistry(p, NewSequenceGenerator())

	node := reg.Ensure(testWidget("a"), "")
	assert.Equal(t, Position{X: 250, Y: 50}, node.Position)
	assert.Equal(t, 2, reg.Len())
}

func TestNodeRegistryRefresh(t *testing.T) {
	reg := NewNodeRegistry(&Pipeline{}, nil)
	reg.Ensure(portWidget("a", []string{"in"}, nil), "")

	assert.True(t, reg.Refresh(portWidget("a", []string{"in", "extra"}, []string{"out"})))
	node, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Len(t, node.Inputs, 2)
	assert.Len(t, node.Outputs, 1)

	assert.False(t, reg.Refresh(testWidget("missing")))

	assert.False(t, reg.Refresh(testWidget("a")), "bare reference keeps cached ports")
	assert.Len(t, node.Inputs, 2)
	assert.Len(t, node.Outputs, 1)
}
