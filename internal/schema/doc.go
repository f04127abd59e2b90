package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldSpec is one entry in a schema's "fields" map. In the YAML source a
// field is either a bare type name ("string", "SomeNestedSchema") or a
// structured declaration ({type: array|object, structure: {...}}). Both
// shapes decode into this type so the compiler can treat them uniformly.
type FieldSpec struct {
	TypeName   string
	Structured *StructuredFieldSpec
}

// StructuredFieldSpec declares an inline array or object field whose
// shape is not a reference to an already-named schema.
type StructuredFieldSpec struct {
	Type      string               `yaml:"type"`
	Structure map[string]FieldSpec `yaml:"structure"`
}

// UnmarshalYAML implements custom decoding for the scalar-or-mapping
// field declaration shape used throughout connector schema documents.
func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.TypeName = node.Value
		return nil
	}

	if node.Kind == yaml.MappingNode {
		var asStruct StructuredFieldSpec
		if err := node.Decode(&asStruct); err != nil {
			return fmt.Errorf("schema: decoding structured field spec: %w", err)
		}
		f.Structured = &asStruct
		return nil
	}

	return fmt.Errorf("schema: field spec is neither a type name nor a structured declaration (yaml kind %d)", node.Kind)
}

// SchemaEntry is one named schema: a nested schema, a resource, or the
// resource_collection declaration.
type SchemaEntry struct {
	Fields  map[string]FieldSpec `yaml:"fields"`
	Service string               `yaml:"service,omitempty"`
}

// ProviderDoc is one provider's full schema declaration.
type ProviderDoc struct {
	NestedSchemas      map[string]SchemaEntry `yaml:"nested_schemas"`
	Resources          map[string]SchemaEntry `yaml:"resources"`
	ResourceCollection SchemaEntry            `yaml:"resource_collection"`
}

// Document is the top-level shape of a connector schema YAML file:
// provider name mapped to its declarations. A single file may declare
// more than one provider, and multiple files may be compiled into the
// same Registry.
type Document map[string]ProviderDoc
