package schema

import "fmt"

// FieldKind classifies how a compiled field's value is shaped.
type FieldKind int

const (
	FieldPrimitive FieldKind = iota
	FieldReference
	FieldObject
	FieldArray
)

// Primitive type names recognized in schema YAML documents.
const (
	PrimitiveString   = "string"
	PrimitiveInteger  = "integer"
	PrimitiveFloat    = "float"
	PrimitiveNumber   = "number"
	PrimitiveBoolean  = "boolean"
	PrimitiveDatetime = "datetime"
	PrimitiveAny      = "any"
)

// CompiledField describes one field of a CompiledType.
type CompiledField struct {
	Name      string
	Kind      FieldKind
	Primitive string         // set when Kind == FieldPrimitive
	RefType   string         // fully-qualified type name, set when Kind == FieldReference or FieldObject
	Elem      *CompiledField // element descriptor, set when Kind == FieldArray
}

// CompiledType is the output of the Schema Compiler for one resource,
// nested schema, or resource collection. Fields preserve declaration
// order so generated field paths and CSV/DB column emission are
// deterministic.
type CompiledType struct {
	Name     string // fully-qualified: con_mon_v2.mappings.<provider>.<Name>
	Provider string
	Fields   []CompiledField
}

// FieldByName returns the field descriptor with the given name, if any.
func (ct *CompiledType) FieldByName(name string) (*CompiledField, bool) {
	for i := range ct.Fields {
		if ct.Fields[i].Name == name {
			return &ct.Fields[i], true
		}
	}
	return nil, false
}

// FullyQualifiedName builds the dotted type name the compiler assigns to
// every declared schema: con_mon_v2.mappings.<provider>.<name>.
func FullyQualifiedName(provider, name string) string {
	return fmt.Sprintf("con_mon_v2.mappings.%s.%s", provider, name)
}
