// Package fieldpath parses and evaluates the field-path mini-language
// used by Check metadata to locate values inside a schema.Record:
//
//	path := func "(" inner ")" | inner
//	inner := segment ("." segment)*
//	segment := ident | ident "[*]"
//
// func is one of len, any, all, count, sum, max, min.
package fieldpath

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/conmon/internal/schema"
)

// Functions is the whitelist of aggregate functions a path may invoke.
var Functions = map[string]bool{
	"len": true, "any": true, "all": true, "count": true,
	"sum": true, "max": true, "min": true,
}

// Segment is one "." separated step of a field path.
type Segment struct {
	Name     string
	Wildcard bool // true when the segment is written as name[*]
}

// Expr is a parsed field path: an optional wrapping aggregate function
// applied to a dotted chain of segments.
type Expr struct {
	Func     string // empty when the path has no function wrapper
	Segments []Segment
	Raw      string
}

var funcPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse compiles a field path string into an Expr. It rejects malformed
// syntax but does not validate that the path resolves against any
// particular schema.CompiledType; that is Eval's job at evaluation time.
func Parse(path string) (Expr, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Expr{}, fmt.Errorf("fieldpath: empty path")
	}

	fn := ""
	inner := trimmed
	if m := funcPattern.FindStringSubmatch(trimmed); m != nil {
		fn = m[1]
		inner = m[2]
		if !Functions[fn] {
			return Expr{}, fmt.Errorf("fieldpath: unknown function %q", fn)
		}
		if inner == "" {
			return Expr{}, fmt.Errorf("fieldpath: %s() has no argument", fn)
		}
	}

	rawSegments := strings.Split(inner, ".")
	segments := make([]Segment, 0, len(rawSegments))
	for _, rs := range rawSegments {
		seg, err := parseSegment(rs)
		if err != nil {
			return Expr{}, fmt.Errorf("fieldpath: %q: %w", path, err)
		}
		segments = append(segments, seg)
	}

	return Expr{Func: fn, Segments: segments, Raw: path}, nil
}

func parseSegment(raw string) (Segment, error) {
	const wildcardSuffix = "[*]"
	if strings.HasSuffix(raw, wildcardSuffix) {
		name := strings.TrimSuffix(raw, wildcardSuffix)
		if !identPattern.MatchString(name) {
			return Segment{}, fmt.Errorf("invalid wildcard segment %q", raw)
		}
		return Segment{Name: name, Wildcard: true}, nil
	}
	if !identPattern.MatchString(raw) {
		return Segment{}, fmt.Errorf("invalid segment %q", raw)
	}
	return Segment{Name: raw}, nil
}

// String renders the Expr back into field-path syntax.
func (e Expr) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	var sb strings.Builder
	for i, seg := range e.Segments {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.Name)
		if seg.Wildcard {
			sb.WriteString("[*]")
		}
	}
	inner := sb.String()
	if e.Func == "" {
		return inner
	}
	return e.Func + "(" + inner + ")"
}

// Eval resolves a parsed field path against a record, returning the
// resolved schema.Value. A missing field, a wildcard applied to a
// non-array value, or a function applied to an incompatible type all
// produce descriptive errors rather than a zero value, per field-path
// totality: a path returned by schema.CompiledType.FieldPaths must
// evaluate successfully against a conforming instance.
func Eval(expr Expr, root schema.Value) (schema.Value, error) {
	cur := []schema.Value{root}

	for _, seg := range expr.Segments {
		next := make([]schema.Value, 0, len(cur))
		for _, v := range cur {
			fv, ok := v.Field(seg.Name)
			if !ok {
				return schema.Nil(), fmt.Errorf("fieldpath: field %q not found", seg.Name)
			}
			if seg.Wildcard {
				if fv.Kind != schema.KindArray {
					return schema.Nil(), fmt.Errorf("fieldpath: %q is not an array, cannot apply [*]", seg.Name)
				}
				next = append(next, fv.Array...)
			} else {
				next = append(next, fv)
			}
		}
		cur = next
	}

	if expr.Func == "" {
		if len(cur) != 1 {
			return schema.Nil(), fmt.Errorf("fieldpath: path %q resolved to %d values without an aggregate function", expr.String(), len(cur))
		}
		return cur[0], nil
	}

	return applyFunc(expr.Func, cur)
}

func flatten(results []schema.Value) []schema.Value {
	if len(results) == 1 && results[0].Kind == schema.KindArray {
		return results[0].Array
	}
	return results
}

func applyFunc(fn string, results []schema.Value) (schema.Value, error) {
	switch fn {
	case "len":
		if len(results) == 1 && results[0].Kind != schema.KindArray {
			v := results[0]
			switch v.Kind {
			case schema.KindString:
				return schema.NewInt(int64(len([]rune(v.Str)))), nil
			case schema.KindNil:
				return schema.NewInt(0), nil
			default:
				return schema.Nil(), fmt.Errorf("fieldpath: len() not supported for %s", v.Kind)
			}
		}
		return schema.NewInt(int64(len(flatten(results)))), nil

	case "count":
		elems := flatten(results)
		n := 0
		for _, e := range elems {
			if truthy(e) {
				n++
			}
		}
		return schema.NewInt(int64(n)), nil

	case "any", "all":
		elems := flatten(results)
		match := fn == "all"
		if len(elems) == 0 {
			match = fn == "all"
		}
		for _, e := range elems {
			t := truthy(e)
			if fn == "any" && t {
				return schema.NewBool(true), nil
			}
			if fn == "all" && !t {
				return schema.NewBool(false), nil
			}
		}
		if fn == "any" {
			return schema.NewBool(false), nil
		}
		return schema.NewBool(match), nil

	case "sum", "max", "min":
		elems := flatten(results)
		nums := make([]float64, 0, len(elems))
		allInt := true
		for _, e := range elems {
			switch e.Kind {
			case schema.KindInt:
				nums = append(nums, float64(e.Int))
			case schema.KindFloat:
				nums = append(nums, e.Float)
				allInt = false
			default:
				return schema.Nil(), fmt.Errorf("fieldpath: %s() requires numeric elements, got %s", fn, e.Kind)
			}
		}
		if len(nums) == 0 {
			if fn == "sum" {
				return schema.NewInt(0), nil
			}
			return schema.Nil(), fmt.Errorf("fieldpath: %s() on empty sequence", fn)
		}
		result := nums[0]
		for _, n := range nums[1:] {
			switch fn {
			case "sum":
				result += n
			case "max":
				if n > result {
					result = n
				}
			case "min":
				if n < result {
					result = n
				}
			}
		}
		if fn == "sum" {
			sum := 0.0
			for _, n := range nums {
				sum += n
			}
			result = sum
		}
		if allInt {
			return schema.NewInt(int64(result)), nil
		}
		return schema.NewFloat(result), nil

	default:
		return schema.Nil(), fmt.Errorf("fieldpath: unknown function %q", fn)
	}
}

func truthy(v schema.Value) bool {
	switch v.Kind {
	case schema.KindNil:
		return false
	case schema.KindBool:
		return v.Bool
	case schema.KindString:
		return v.Str != ""
	case schema.KindInt:
		return v.Int != 0
	case schema.KindFloat:
		return v.Float != 0
	case schema.KindArray:
		return len(v.Array) > 0
	case schema.KindRecord:
		return v.Record != nil
	default:
		return false
	}
}
