// Package schema compiles YAML connector/resource definitions into a
// registry of type descriptors and represents resource instances with a
// dynamic, reflection-free value model.
package schema

import "fmt"

// Kind identifies the runtime shape of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is a dynamically-typed field value. Exactly one of the payload
// fields is meaningful, selected by Kind. Resource data crosses the
// Schema Compiler boundary as Value/Record rather than generated structs,
// so the rest of the engine never reflects over connector-specific types.
type Value struct {
	Kind   Kind
	Str    string
	Int    int64
	Float  float64
	Bool   bool
	Array  []Value
	Record *Record
}

// Record is a named, ordered field set: one resource instance of a
// compiled type.
type Record struct {
	TypeName string
	Order    []string
	Fields   map[string]Value
}

// NewRecord builds an empty Record for the given compiled type name.
func NewRecord(typeName string) *Record {
	return &Record{TypeName: typeName, Fields: make(map[string]Value)}
}

// Set assigns a field, tracking first-seen insertion order.
func (r *Record) Set(name string, v Value) {
	if _, exists := r.Fields[name]; !exists {
		r.Order = append(r.Order, name)
	}
	r.Fields[name] = v
}

// Get returns a field value and whether it was present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

func Nil() Value                { return Value{Kind: KindNil} }
func NewString(s string) Value  { return Value{Kind: KindString, Str: s} }
func NewInt(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func NewBool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NewArray(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }
func NewRecordValue(r *Record) Value {
	return Value{Kind: KindRecord, Record: r}
}

// Field looks up a named field on a record-kind Value. It is the only
// attribute-access primitive the field-path engine needs, since Value has
// no separate bare-map representation.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindRecord || v.Record == nil {
		return Nil(), false
	}
	return v.Record.Get(name)
}

// IsNil reports whether the value is the nil/absent sentinel.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// Native converts a Value into a plain Go interface{}, for use by the
// sandbox interpreter and for logging/diagnostics.
func (v Value) Native() interface{} {
	switch v.Kind {
	case KindNil:
		return nil
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindArray:
		out := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.Native()
		}
		return out
	case KindRecord:
		out := make(map[string]interface{}, len(v.Record.Fields))
		for k, e := range v.Record.Fields {
			out[k] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// FromNative lifts a plain Go value (as produced by a connector or decoded
// from JSON/YAML) into a Value. Maps become unordered Records rooted at
// typeName; typeName may be empty for anonymous nested objects.
func FromNative(v interface{}, typeName string) Value {
	switch t := v.(type) {
	case nil:
		return Nil()
	case string:
		return NewString(t)
	case bool:
		return NewBool(t)
	case int:
		return NewInt(int64(t))
	case int64:
		return NewInt(t)
	case float64:
		return NewFloat(t)
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromNative(e, "")
		}
		return NewArray(arr)
	case []string:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = NewString(e)
		}
		return NewArray(arr)
	case map[string]interface{}:
		r := NewRecord(typeName)
		for k, e := range t {
			r.Set(k, FromNative(e, ""))
		}
		return NewRecordValue(r)
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}
