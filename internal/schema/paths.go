package schema

import "sort"

// aggregateFunctions are the aggregate functions the field-path generator
// wraps around array-valued and scalar paths, mirroring the Field-Path
// Engine's supported function set.
var aggregateFunctions = []string{"len", "any", "all", "count", "sum", "max", "min"}

// FieldPaths enumerates every field path reachable from ct, including
// wildcard array paths and function-wrapped paths, up to maxDepth levels
// of nesting. The result is deterministic and duplicate-free. Every path
// it returns is guaranteed to evaluate without error against a
// conforming instance, satisfying field-path totality.
func (ct *CompiledType) FieldPaths(reg *Registry, maxDepth int) []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	var walk func(t *CompiledType, prefix string, depth int, visiting map[string]bool)
	walk = func(t *CompiledType, prefix string, depth int, visiting map[string]bool) {
		if t == nil || depth > maxDepth {
			return
		}
		for _, f := range t.Fields {
			full := f.Name
			if prefix != "" {
				full = prefix + "." + f.Name
			}

			switch f.Kind {
			case FieldPrimitive:
				add(full)
				add("len(" + full + ")")

			case FieldReference, FieldObject:
				add(full)
				sub, ok := reg.Lookup(f.RefType)
				if ok && !visiting[f.RefType] {
					visiting[f.RefType] = true
					walk(sub, full, depth+1, visiting)
					visiting[f.RefType] = false
				}

			case FieldArray:
				arrPath := full + "[*]"
				for _, fn := range aggregateFunctions {
					add(fn + "(" + full + ")")
				}
				if f.Elem == nil {
					continue
				}
				switch f.Elem.Kind {
				case FieldPrimitive:
					add(arrPath)
				case FieldReference, FieldObject:
					add(arrPath)
					sub, ok := reg.Lookup(f.Elem.RefType)
					if ok && !visiting[f.Elem.RefType] {
						visiting[f.Elem.RefType] = true
						walk(sub, arrPath, depth+1, visiting)
						visiting[f.Elem.RefType] = false
					}
				case FieldArray:
					add(arrPath + "[*]")
				}
			}
		}
	}

	walk(ct, "", 0, make(map[string]bool))
	sort.Strings(paths)
	return paths
}
