package compare

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/phrazzld/conmon/internal/schema"
)

// NameError reports a reference to a name outside the sandbox whitelist.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("compare: sandbox name error: %q is not a whitelisted name", e.Name)
}

// whitelist enumerates every identifier a custom predicate may reference,
// beyond the bound inputs fetched_value/config_value/expected_value.
// Keeping this as an explicit allow-list, checked before compilation,
// means the sandbox's safety does not depend solely on the expression
// engine's own scoping behavior.
var whitelist = map[string]bool{
	"len": true, "str": true, "int": true, "float": true, "bool": true,
	"list": true, "dict": true, "set": true, "tuple": true,
	"any": true, "all": true, "max": true, "min": true, "sum": true,
	"sorted": true, "reversed": true, "enumerate": true, "zip": true,
	"range": true, "isinstance": true, "hasattr": true, "getattr": true,
	"abs": true, "round": true, "Exception": true,
}

// boundNames are the sandbox's bound inputs, always in scope.
var boundNames = map[string]bool{
	"fetched_value": true, "config_value": true, "expected_value": true, "result": true,
}

// exprKeywords are expr-lang's own reserved words, which parse as bare
// identifiers in our scan but are not user-referenceable names.
var exprKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "matches": true,
	"contains": true, "startsWith": true, "endsWith": true,
	"true": true, "false": true, "nil": true, "let": true,
}

var identPattern = regexp.MustCompile(`(\.)?\b[A-Za-z_][A-Za-z0-9_]*\b`)
var stringLiteralPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)

// scanDisallowedNames returns the first identifier referenced in logic
// that is neither a bound name, a whitelisted builtin, nor an
// attribute/key access (preceded by '.').
func scanDisallowedNames(logic string) string {
	stripped := stringLiteralPattern.ReplaceAllString(logic, `""`)
	for _, m := range identPattern.FindAllStringSubmatch(stripped, -1) {
		if m[1] == "." {
			continue // attribute/map-key access, not a name reference
		}
		name := strings.TrimPrefix(m[0], ".")
		if boundNames[name] || whitelist[name] || exprKeywords[name] {
			continue
		}
		return name
	}
	return ""
}

// ValidateLogic enforces the pre-execution checks from §4.3.1: logic must
// be non-empty, non-whitespace, and contain at least one non-comment
// line. Comment lines begin with '#'.
func ValidateLogic(logic string) error {
	trimmed := strings.TrimSpace(logic)
	if trimmed == "" {
		return fmt.Errorf("compare: custom predicate logic is empty")
	}
	hasCode := false
	for _, line := range strings.Split(trimmed, "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		hasCode = true
		break
	}
	if !hasCode {
		return fmt.Errorf("compare: custom predicate logic consists only of comments")
	}
	return nil
}

// stripResultAssignment accepts the spec's textual convention of writing
// custom predicates as "result = <expr>" and reduces them to the bare
// expression expr-lang actually evaluates; a plain expression with no
// such prefix is accepted unchanged.
func stripResultAssignment(logic string) string {
	var code []string
	for _, line := range strings.Split(logic, "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		code = append(code, l)
	}
	joined := strings.Join(code, " ")
	if rest, ok := strings.CutPrefix(joined, "result ="); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(joined, "result="); ok {
		return strings.TrimSpace(rest)
	}
	return joined
}

// sandboxEnv builds the expr-lang evaluation environment: bound inputs
// plus Go implementations of the whitelisted builtin set. Defining these
// ourselves, rather than trusting expr-lang's own standard library,
// keeps the exposed surface exactly the whitelist from §4.3.1.
func sandboxEnv(fetched, expected interface{}) map[string]interface{} {
	return map[string]interface{}{
		"fetched_value":  fetched,
		"config_value":   expected,
		"expected_value": expected,

		"str":   func(v interface{}) string { return fmt.Sprintf("%v", v) },
		"int":   sandboxInt,
		"float": sandboxFloat,
		"bool":  truthyNative,
		"list": func(v interface{}) []interface{} {
			if arr, ok := v.([]interface{}); ok {
				return arr
			}
			return []interface{}{v}
		},
		"dict": func(v interface{}) map[string]interface{} {
			if m, ok := v.(map[string]interface{}); ok {
				return m
			}
			return map[string]interface{}{}
		},
		"set":   func(v interface{}) []interface{} { return dedupe(toSlice(v)) },
		"tuple": func(v interface{}) []interface{} { return toSlice(v) },
		"sorted": func(v interface{}) []interface{} {
			return sortSlice(toSlice(v))
		},
		"reversed": func(v interface{}) []interface{} {
			s := toSlice(v)
			out := make([]interface{}, len(s))
			for i, e := range s {
				out[len(s)-1-i] = e
			}
			return out
		},
		"enumerate": func(v interface{}) []map[string]interface{} {
			s := toSlice(v)
			out := make([]map[string]interface{}, len(s))
			for i, e := range s {
				out[i] = map[string]interface{}{"index": i, "value": e}
			}
			return out
		},
		"zip": func(a, b interface{}) []interface{} {
			as, bs := toSlice(a), toSlice(b)
			n := len(as)
			if len(bs) < n {
				n = len(bs)
			}
			out := make([]interface{}, n)
			for i := 0; i < n; i++ {
				out[i] = []interface{}{as[i], bs[i]}
			}
			return out
		},
		"range": sandboxRange,
		"isinstance": func(v interface{}, typeName string) bool {
			return sandboxTypeName(v) == typeName
		},
		"hasattr": func(v interface{}, name string) bool {
			m, ok := v.(map[string]interface{})
			if !ok {
				return false
			}
			_, ok = m[name]
			return ok
		},
		"getattr": func(args ...interface{}) interface{} {
			if len(args) < 2 {
				return nil
			}
			m, ok := args[0].(map[string]interface{})
			if !ok {
				if len(args) >= 3 {
					return args[2]
				}
				return nil
			}
			name, _ := args[1].(string)
			if v, ok := m[name]; ok {
				return v
			}
			if len(args) >= 3 {
				return args[2]
			}
			return nil
		},
		"abs": func(v interface{}) float64 {
			f, _ := toFloat(v)
			return math.Abs(f)
		},
		"round": func(v interface{}) int {
			f, _ := toFloat(v)
			return int(math.Round(f))
		},
		"Exception": "Exception",
	}
}

func sandboxInt(v interface{}) int {
	f, _ := toFloat(v)
	return int(f)
}

func sandboxFloat(v interface{}) float64 {
	f, _ := toFloat(v)
	return f
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toSlice(v interface{}) []interface{} {
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	return nil
}

func dedupe(in []interface{}) []interface{} {
	seen := make(map[interface{}]bool)
	var out []interface{}
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func sortSlice(in []interface{}) []interface{} {
	out := append([]interface{}{}, in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessNative(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func lessNative(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func sandboxRange(args ...interface{}) []interface{} {
	var start, stop int
	switch len(args) {
	case 1:
		stop = sandboxInt(args[0])
	case 2:
		start = sandboxInt(args[0])
		stop = sandboxInt(args[1])
	default:
		return nil
	}
	if stop <= start {
		return []interface{}{}
	}
	out := make([]interface{}, 0, stop-start)
	for i := start; i < stop; i++ {
		out = append(out, i)
	}
	return out
}

func sandboxTypeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "dict"
	case nil:
		return "NoneType"
	default:
		return "unknown"
	}
}

func truthyNative(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// RunCustomPredicate executes a Check's custom logic in the sandbox and
// returns the coerced boolean outcome. timeout bounds wall-clock
// execution; exceeding it is an execution failure, never a silent false.
func RunCustomPredicate(ctx context.Context, logic string, fetched, expected schema.Value, timeout time.Duration) (bool, error) {
	if err := ValidateLogic(logic); err != nil {
		return false, err
	}

	expression := stripResultAssignment(logic)
	if name := scanDisallowedNames(expression); name != "" {
		return false, &NameError{Name: name}
	}

	env := sandboxEnv(fetched.Native(), expected.Native())

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("compare: sandbox compile error: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val interface{}
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("compare: sandbox panic: %v", r)}
			}
		}()
		v, err := expr.Run(program, env)
		done <- outcome{val: v, err: err}
	}()

	select {
	case <-runCtx.Done():
		return false, fmt.Errorf("compare: sandbox exceeded wall-clock ceiling of %s", timeout)
	case o := <-done:
		if o.err != nil {
			return false, fmt.Errorf("compare: sandbox runtime error: %w", o.err)
		}
		return truthyNative(o.val), nil
	}
}
