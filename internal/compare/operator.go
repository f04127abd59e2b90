// Package compare implements the Comparison Engine: the fixed set of
// binary operators a Check's comparison_operation may apply between a
// fetched field value and an expected value, plus a sandboxed
// custom-predicate runner for operator "custom".
package compare

import (
	"fmt"
	"strings"

	"github.com/phrazzld/conmon/internal/schema"
)

// Operator is the wire value stored in Check metadata. The literal
// strings must match what is persisted, so this is a named string type
// rather than an int enum.
type Operator string

const (
	Equal        Operator = "=="
	NotEqual     Operator = "!="
	LessThan     Operator = "<"
	GreaterThan  Operator = ">"
	LessOrEqual  Operator = "<="
	GreaterOrEq  Operator = ">="
	Contains     Operator = "contains"
	NotContains  Operator = "not_contains"
	CustomLogic  Operator = "custom"
)

// Operators is the enumerated set of valid wire values, in spec order.
var Operators = []Operator{Equal, NotEqual, LessThan, GreaterThan, LessOrEqual, GreaterOrEq, Contains, NotContains, CustomLogic}

// Valid reports whether op is a recognized operator.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ErrComparisonFailed is returned when a numeric/string operator is
// applied to incompatible types.
type ErrComparisonFailed struct {
	Op      Operator
	Fetched schema.Value
	Reason  string
}

func (e *ErrComparisonFailed) Error() string {
	return fmt.Sprintf("compare: operator %q: %s (fetched kind %s)", e.Op, e.Reason, e.Fetched.Kind)
}

// Compare applies op to the fetched and expected values, per §4.3:
//
//   - numeric/string comparators apply the natural operator; a type
//     mismatch is a comparison error
//   - contains/not_contains never raise
//   - custom is handled by the caller via the Sandbox (Compare rejects it)
func Compare(op Operator, fetched, expected schema.Value) (bool, error) {
	switch op {
	case Equal:
		return valuesEqual(fetched, expected), nil
	case NotEqual:
		return !valuesEqual(fetched, expected), nil
	case LessThan, GreaterThan, LessOrEqual, GreaterOrEq:
		return ordinalCompare(op, fetched, expected)
	case Contains:
		return containsValue(fetched, expected), nil
	case NotContains:
		return !containsValue(fetched, expected), nil
	case CustomLogic:
		return false, fmt.Errorf("compare: operator %q must be evaluated via the sandbox, not Compare", op)
	default:
		return false, fmt.Errorf("compare: unknown operator %q", op)
	}
}

func valuesEqual(a, b schema.Value) bool {
	if a.Kind == schema.KindInt && b.Kind == schema.KindFloat {
		return float64(a.Int) == b.Float
	}
	if a.Kind == schema.KindFloat && b.Kind == schema.KindInt {
		return a.Float == float64(b.Int)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case schema.KindNil:
		return true
	case schema.KindString:
		return a.Str == b.Str
	case schema.KindInt:
		return a.Int == b.Int
	case schema.KindFloat:
		return a.Float == b.Float
	case schema.KindBool:
		return a.Bool == b.Bool
	case schema.KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !valuesEqual(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numeric(v schema.Value) (float64, bool) {
	switch v.Kind {
	case schema.KindInt:
		return float64(v.Int), true
	case schema.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func ordinalCompare(op Operator, fetched, expected schema.Value) (bool, error) {
	if fn, okf := numeric(fetched); okf {
		if en, oke := numeric(expected); oke {
			return applyOrdinal(op, fn, en), nil
		}
	}
	if fetched.Kind == schema.KindString && expected.Kind == schema.KindString {
		return applyOrdinalString(op, fetched.Str, expected.Str), nil
	}
	return false, &ErrComparisonFailed{Op: op, Fetched: fetched, Reason: "incompatible or non-ordinal types"}
}

func applyOrdinal(op Operator, a, b float64) bool {
	switch op {
	case LessThan:
		return a < b
	case GreaterThan:
		return a > b
	case LessOrEqual:
		return a <= b
	case GreaterOrEq:
		return a >= b
	default:
		return false
	}
}

func applyOrdinalString(op Operator, a, b string) bool {
	switch op {
	case LessThan:
		return a < b
	case GreaterThan:
		return a > b
	case LessOrEqual:
		return a <= b
	case GreaterOrEq:
		return a >= b
	default:
		return false
	}
}

// containsValue implements the containment relation for "contains".
// Strings check substring containment; arrays check element equality.
// Anything else has no containment relation and yields false, never an
// error.
func containsValue(fetched, expected schema.Value) bool {
	switch fetched.Kind {
	case schema.KindString:
		if expected.Kind != schema.KindString {
			return false
		}
		return strings.Contains(fetched.Str, expected.Str)
	case schema.KindArray:
		for _, e := range fetched.Array {
			if valuesEqual(e, expected) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

