package pipeline

// CreatePipeline starts a builder for an empty pipeline
func CreatePipeline(name, canvasID string, opts ...BuilderOption) *Builder {
	return New(name, canvasID, opts...)
}

// CreateFanOutPipeline connects one output port to every target input port
func CreateFanOutPipeline(name, canvasID string, source WidgetPort, targets []WidgetPort, opts ...BuilderOption) (*Pipeline, error) {
	b := New(name, canvasID, opts...)
	for _, target := range targets {
		b.Connect(source.Widget, source.Port).To(target.Widget, target.Port)
	}
	return b.Build()
}

// CreateFanInPipeline connects every source output port to one input port
func CreateFanInPipeline(name, canvasID string, sources []WidgetPort, target WidgetPort, opts ...BuilderOption) (*Pipeline, error) {
	b := New(name, canvasID, opts...)
	for _, source := range sources {
		b.Connect(source.Widget, source.Port).To(target.Widget, target.Port)
	}
	return b.Build()
}

// ChainStep is one widget of a linear chain. Input receives from the
// previous step, Output feeds the next one.
type ChainStep struct {
	Widget Widget
	Input  string
	Output string
}

// CreateChainPipeline connects consecutive steps output to input
func CreateChainPipeline(name, canvasID string, steps []ChainStep, opts ...BuilderOption) (*Pipeline, error) {
	b := New(name, canvasID, opts...)
	for i, step := range steps {
		b.AddWidget(step.Widget, "")
		if i == 0 {
			continue
		}
		prev := steps[i-1]
		b.Connect(prev.Widget, prev.Output).To(step.Widget, step.Input)
	}
	return b.Build()
}
