package manifest

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/c360/widgetflow/errors"
)

//go:embed definition.schema.json
var definitionSchemaJSON []byte

var definitionSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(definitionSchemaJSON))
})

// Parse reads a widget definition document. YAML and JSON are both accepted.
// The document is checked against the definition schema before decoding, and
// legacy port mappings keep their document order.
func Parse(data []byte) (Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Definition{}, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidManifest, err), "manifest", "Parse", "decode document")
	}
	doc := documentBody(&root)
	if doc == nil || doc.Kind != yaml.MappingNode {
		return Definition{}, errors.WrapInvalid(
			fmt.Errorf("%w: document is not a mapping", errors.ErrInvalidManifest), "manifest", "Parse", "decode document")
	}

	if err := validateDocument(doc); err != nil {
		return Definition{}, err
	}

	def := Definition{
		ID:      scalar(mappingValue(doc, "id")),
		Name:    scalar(mappingValue(doc, "name")),
		Version: scalar(mappingValue(doc, "version")),
	}

	m, err := decodeManifest(doc)
	if err != nil {
		return Definition{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s: %v", errors.ErrInvalidManifest, def.ID, err), "manifest", "Parse", "decode ports")
	}
	def.Manifest = m
	return def, nil
}

func validateDocument(doc *yaml.Node) error {
	schema, err := definitionSchema()
	if err != nil {
		return errors.WrapFatal(err, "manifest", "Parse", "compile definition schema")
	}

	var generic any
	if err := doc.Decode(&generic); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidManifest, err), "manifest", "Parse", "decode document")
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidManifest, err), "manifest", "Parse", "schema validation")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidManifest, strings.Join(problems, "; ")),
		"manifest", "Parse", "schema validation")
}

// decodeManifest picks the variant: an io block wins over legacy mappings,
// and a document with neither is undeclared.
func decodeManifest(doc *yaml.Node) (Manifest, error) {
	if io := mappingValue(doc, "io"); io != nil && io.Kind == yaml.MappingNode {
		inputs, err := decodePortList(mappingValue(io, "inputs"))
		if err != nil {
			return nil, fmt.Errorf("io.inputs: %w", err)
		}
		outputs, err := decodePortList(mappingValue(io, "outputs"))
		if err != nil {
			return nil, fmt.Errorf("io.outputs: %w", err)
		}
		return IOManifest{Inputs: inputs, Outputs: outputs}, nil
	}

	inNode, outNode := mappingValue(doc, "inputs"), mappingValue(doc, "outputs")
	if inNode == nil && outNode == nil {
		return UndeclaredManifest{}, nil
	}
	inputs, err := decodePortMap(inNode)
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	outputs, err := decodePortMap(outNode)
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	return LegacyManifest{Inputs: inputs, Outputs: outputs}, nil
}

func decodePortList(node *yaml.Node) ([]PortSpec, error) {
	if node == nil || isNull(node) {
		return nil, nil
	}
	specs := make([]PortSpec, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind == yaml.ScalarNode {
			specs = append(specs, PortSpec{Name: item.Value})
			continue
		}
		var spec PortSpec
		if err := item.Decode(&spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func decodePortMap(node *yaml.Node) ([]LegacyPort, error) {
	if node == nil || isNull(node) {
		return nil, nil
	}
	ports := make([]LegacyPort, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := LegacyPort{Key: key.Value}
		if !isNull(value) {
			var spec PortSpec
			if err := value.Decode(&spec); err != nil {
				return nil, err
			}
			entry.Spec = &spec
		}
		ports = append(ports, entry)
	}
	return ports, nil
}

func documentBody(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		return root.Content[0]
	}
	return root
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return ""
	}
	return node.Value
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
