package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// baseFields are present on every compiled resource type, mirroring the
// connector-agnostic envelope every ConMon resource carries regardless of
// provider.
var baseFields = []CompiledField{
	{Name: "id", Kind: FieldPrimitive, Primitive: PrimitiveString},
	{Name: "source_connector", Kind: FieldPrimitive, Primitive: PrimitiveString},
}

// Compile parses a connector schema YAML document and merges its compiled
// types into reg. Compilation proceeds in three passes per provider,
// mirroring how the reference loader resolves forward references between
// sibling nested schemas before building resources and collections:
//
//  1. declare a placeholder CompiledType for every nested schema name, so
//     later passes can resolve references regardless of declaration order
//  2. resolve nested schema fields, then resource fields
//  3. resolve the resource_collection type
func Compile(reg *Registry, yamlSource []byte) error {
	var doc Document
	if err := yaml.Unmarshal(yamlSource, &doc); err != nil {
		return fmt.Errorf("schema: parsing document: %w", err)
	}

	providers := make([]string, 0, len(doc))
	for p := range doc {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	for _, provider := range providers {
		if err := compileProvider(reg, provider, doc[provider]); err != nil {
			return fmt.Errorf("schema: provider %q: %w", provider, err)
		}
	}
	return nil
}

func compileProvider(reg *Registry, provider string, pdoc ProviderDoc) error {
	nestedNames := make([]string, 0, len(pdoc.NestedSchemas))
	for name := range pdoc.NestedSchemas {
		nestedNames = append(nestedNames, name)
	}
	sort.Strings(nestedNames)

	// Pass 1: placeholders, so sibling nested schemas can reference each
	// other regardless of declaration order.
	for _, name := range nestedNames {
		fq := FullyQualifiedName(provider, name)
		reg.Register(&CompiledType{Name: fq, Provider: provider})
	}

	// Pass 2a: resolve nested schemas.
	for _, name := range nestedNames {
		fq := FullyQualifiedName(provider, name)
		ct, err := buildType(reg, provider, fq, pdoc.NestedSchemas[name])
		if err != nil {
			return fmt.Errorf("nested schema %q: %w", name, err)
		}
		reg.Register(ct)
	}

	// Pass 2b: resolve resources.
	resourceNames := make([]string, 0, len(pdoc.Resources))
	for name := range pdoc.Resources {
		resourceNames = append(resourceNames, name)
	}
	sort.Strings(resourceNames)

	for _, name := range resourceNames {
		fq := FullyQualifiedName(provider, name)
		ct, err := buildType(reg, provider, fq, pdoc.Resources[name])
		if err != nil {
			return fmt.Errorf("resource %q: %w", name, err)
		}
		ct.Fields = append(append([]CompiledField{}, baseFields...), ct.Fields...)
		reg.Register(ct)
		reg.markResource(provider, fq)
	}

	// Pass 3: resolve the resource_collection type, if declared.
	if len(pdoc.ResourceCollection.Fields) > 0 {
		fq := FullyQualifiedName(provider, "ResourceCollection")
		ct, err := buildType(reg, provider, fq, pdoc.ResourceCollection)
		if err != nil {
			return fmt.Errorf("resource_collection: %w", err)
		}
		reg.Register(ct)
		reg.markCollection(provider, fq)
	}

	return nil
}

// buildType resolves a SchemaEntry's field map into a CompiledType.
// Inline "structure" declarations mint synthetic nested types registered
// under a name derived from their parent, matching how the original
// loader builds anonymous nested models on the fly.
func buildType(reg *Registry, provider, fqName string, entry SchemaEntry) (*CompiledType, error) {
	ct := &CompiledType{Name: fqName, Provider: provider}

	fieldNames := make([]string, 0, len(entry.Fields))
	for name := range entry.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for _, name := range fieldNames {
		cf, err := resolveField(reg, provider, fqName, name, entry.Fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		ct.Fields = append(ct.Fields, *cf)
	}
	return ct, nil
}

func resolveField(reg *Registry, provider, parentFQ, fieldName string, spec FieldSpec) (*CompiledField, error) {
	if spec.Structured != nil {
		return resolveStructuredField(reg, provider, parentFQ, fieldName, spec.Structured)
	}
	return resolveScalarField(reg, provider, spec.TypeName), nil
}

func resolveScalarField(reg *Registry, provider, typeName string) *CompiledField {
	switch typeName {
	case PrimitiveString, PrimitiveInteger, PrimitiveFloat, PrimitiveNumber, PrimitiveBoolean, PrimitiveDatetime, PrimitiveAny, "":
		prim := typeName
		if prim == "" {
			prim = PrimitiveAny
		}
		return &CompiledField{Kind: FieldPrimitive, Primitive: prim}
	default:
		fq := FullyQualifiedName(provider, typeName)
		if _, ok := reg.Lookup(fq); !ok {
			// Unknown reference: treat as opaque so evaluation never
			// panics on a schema document referencing an as-yet
			// uncompiled or missing type.
			return &CompiledField{Kind: FieldPrimitive, Primitive: PrimitiveAny}
		}
		return &CompiledField{Kind: FieldReference, RefType: fq}
	}
}

func resolveStructuredField(reg *Registry, provider, parentFQ, fieldName string, s *StructuredFieldSpec) (*CompiledField, error) {
	switch s.Type {
	case "object":
		syntheticFQ := fmt.Sprintf("%s.%s", parentFQ, fieldName)
		ct, err := buildAnonymousType(reg, provider, syntheticFQ, s.Structure)
		if err != nil {
			return nil, err
		}
		reg.Register(ct)
		return &CompiledField{Kind: FieldObject, RefType: syntheticFQ}, nil

	case "array":
		if len(s.Structure) == 0 {
			// Array of a primitive/any, no inline object structure.
			return &CompiledField{Kind: FieldArray, Elem: &CompiledField{Kind: FieldPrimitive, Primitive: PrimitiveAny}}, nil
		}
		syntheticFQ := fmt.Sprintf("%s.%sItem", parentFQ, fieldName)
		ct, err := buildAnonymousType(reg, provider, syntheticFQ, s.Structure)
		if err != nil {
			return nil, err
		}
		reg.Register(ct)
		return &CompiledField{
			Kind: FieldArray,
			Elem: &CompiledField{Kind: FieldObject, RefType: syntheticFQ},
		}, nil

	default:
		return nil, fmt.Errorf("unknown structured field type %q", s.Type)
	}
}

func buildAnonymousType(reg *Registry, provider, fqName string, structure map[string]FieldSpec) (*CompiledType, error) {
	ct := &CompiledType{Name: fqName, Provider: provider}

	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cf, err := resolveField(reg, provider, fqName, name, structure[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		ct.Fields = append(ct.Fields, *cf)
	}
	return ct, nil
}
