package manifest

import (
	"github.com/c360/widgetflow/pipeline"
)

// Manifest is the port declaration block of a widget definition. It is one
// of IOManifest, LegacyManifest or UndeclaredManifest.
type Manifest interface {
	manifest()
}

// PortSpec is a single declared port. Bare-string declarations only set Name.
type PortSpec struct {
	ID          string `yaml:"id" json:"id,omitempty"`
	Name        string `yaml:"name" json:"name,omitempty"`
	Type        string `yaml:"type" json:"type,omitempty"`
	PayloadType string `yaml:"payloadType" json:"payloadType,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// IOManifest is the current format: ordered io.inputs and io.outputs lists.
type IOManifest struct {
	Inputs  []PortSpec
	Outputs []PortSpec
}

// LegacyPort is one entry of a legacy port mapping, in document order.
// Spec is nil when the mapping value was null.
type LegacyPort struct {
	Key  string
	Spec *PortSpec
}

// LegacyManifest is the older format: top-level inputs and outputs mappings
// of port name to schema object.
type LegacyManifest struct {
	Inputs  []LegacyPort
	Outputs []LegacyPort
}

// UndeclaredManifest marks a definition without any port declaration.
type UndeclaredManifest struct{}

func (IOManifest) manifest()         {}
func (LegacyManifest) manifest()     {}
func (UndeclaredManifest) manifest() {}

// Definition is a parsed widget definition
type Definition struct {
	ID       string
	Name     string
	Version  string
	Manifest Manifest
}

// Normalize converts any manifest variant into the canonical port lists.
// A nil manifest is treated as undeclared.
func Normalize(m Manifest) (inputs, outputs []pipeline.Port) {
	switch m := m.(type) {
	case IOManifest:
		return normalizeIO(m)
	case *IOManifest:
		return normalizeIO(*m)
	case LegacyManifest:
		return normalizeLegacy(m)
	case *LegacyManifest:
		return normalizeLegacy(*m)
	default:
		return normalizeUndeclared()
	}
}

func normalizeIO(m IOManifest) (inputs, outputs []pipeline.Port) {
	convert := func(specs []PortSpec, dir pipeline.Direction) []pipeline.Port {
		var ports []pipeline.Port
		for _, spec := range specs {
			if port, ok := toPort(spec, "", dir); ok {
				ports = append(ports, port)
			}
		}
		return ports
	}
	return convert(m.Inputs, pipeline.DirectionInput), convert(m.Outputs, pipeline.DirectionOutput)
}

func normalizeLegacy(m LegacyManifest) (inputs, outputs []pipeline.Port) {
	convert := func(entries []LegacyPort, dir pipeline.Direction) []pipeline.Port {
		var ports []pipeline.Port
		for _, entry := range entries {
			var spec PortSpec
			if entry.Spec != nil {
				spec = *entry.Spec
			}
			if port, ok := toPort(spec, entry.Key, dir); ok {
				ports = append(ports, port)
			}
		}
		return ports
	}
	return convert(m.Inputs, pipeline.DirectionInput), convert(m.Outputs, pipeline.DirectionOutput)
}

func normalizeUndeclared() (inputs, outputs []pipeline.Port) {
	return []pipeline.Port{{Name: "input", Direction: pipeline.DirectionInput, Type: pipeline.AnyType}},
		[]pipeline.Port{{Name: "output", Direction: pipeline.DirectionOutput, Type: pipeline.AnyType}}
}

// toPort resolves name from id, then name, then key, and type from type,
// then payloadType, then any. Ports without a resolvable name are dropped.
func toPort(spec PortSpec, key string, dir pipeline.Direction) (pipeline.Port, bool) {
	name := firstNonEmpty(spec.ID, spec.Name, key)
	if name == "" {
		return pipeline.Port{}, false
	}
	return pipeline.Port{
		Name:        name,
		Direction:   dir,
		Type:        firstNonEmpty(spec.Type, spec.PayloadType, pipeline.AnyType),
		Description: spec.Description,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
