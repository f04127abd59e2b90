package generator

import (
	"fmt"
	"strings"

	"github.com/phrazzld/conmon/internal/check"
	"github.com/phrazzld/conmon/internal/compare"
	"github.com/phrazzld/conmon/internal/connector"
	"github.com/phrazzld/conmon/internal/framework"
	"github.com/phrazzld/conmon/internal/schema"
)

// sampleFieldPathDepth bounds how deep field_paths() walks the resource
// schema when building the prompt's example path list, per §4.6.
const sampleFieldPathDepth = 4

// BuildCheckPrompt constructs the initial generation prompt: the resource
// schema fragment for resourceModelName, the operator enum, a sample of
// that type's field paths, and the control's text/title/family with its
// severity/category defaults, stitched with the teacher's tagged-section
// style (StitchPrompt).
func BuildCheckPrompt(ctrl framework.Control, connType connector.Type, ct *schema.CompiledType, reg *schema.Registry) string {
	var sb strings.Builder

	family := ctrl.Family()
	severity, category := FamilyDefaults(family)

	sb.WriteString("<control>\n")
	sb.WriteString(fmt.Sprintf("name: %s\n", ctrl.ControlName))
	sb.WriteString(fmt.Sprintf("title: %s\n", ctrl.ControlLongName))
	sb.WriteString(fmt.Sprintf("family: %s\n", family))
	sb.WriteString(fmt.Sprintf("text: %s\n", ctrl.ControlText))
	sb.WriteString(fmt.Sprintf("suggested_severity: %s\n", severity))
	sb.WriteString(fmt.Sprintf("suggested_category: %s\n", category))
	sb.WriteString("</control>\n\n")

	sb.WriteString("<connector>\n")
	sb.WriteString(connType.String())
	sb.WriteString("\n</connector>\n\n")

	sb.WriteString("<resource_schema>\n")
	sb.WriteString(fmt.Sprintf("resource_model_name: %s\n", ct.Name))
	for _, f := range ct.Fields {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, fieldKindLabel(f)))
	}
	sb.WriteString("</resource_schema>\n\n")

	sb.WriteString("<field_paths>\n")
	for _, p := range ct.FieldPaths(reg, sampleFieldPathDepth) {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	sb.WriteString("</field_paths>\n\n")

	sb.WriteString("<operators>\n")
	for _, op := range compare.Operators {
		sb.WriteString(string(op))
		sb.WriteString("\n")
	}
	sb.WriteString("</operators>\n\n")

	sb.WriteString(strictSchemaExample)

	return sb.String()
}

func fieldKindLabel(f schema.CompiledField) string {
	switch f.Kind {
	case schema.FieldPrimitive:
		return f.Primitive
	case schema.FieldReference, schema.FieldObject:
		return f.RefType
	case schema.FieldArray:
		if f.Elem != nil {
			return "array<" + fieldKindLabel(*f.Elem) + ">"
		}
		return "array"
	default:
		return "any"
	}
}

// strictSchemaExample is the literal YAML shape the LLM must fill in,
// per §4.6 "a strict schema example ... output_statements, fix_details,
// and metadata with operation.name = custom and inline logic."
const strictSchemaExample = `<output_format>
Respond with exactly one check under a top-level "checks:" key:

checks:
  - name: <short name>
    description: <one sentence>
    category: <category>
    output_statements:
      success: <message shown when the check passes>
      failure: <message shown when the check fails>
      partial: <message shown when some resources pass>
    fix_details:
      description: <remediation summary>
      instructions:
        - <step>
      estimated_time: <e.g. "15 minutes">
      automation_available: <true|false>
    metadata:
      resource_type: <fully-qualified resource type name>
      field_path: <field-path expression>
      operation:
        name: custom
        logic: <expr-lang predicate assigning result, or a comparison operator name with expected_value set>
      expected_value: <value, omitted for custom logic>
      tags: [<tag>]
      severity: <severity>
      category: <category>
</output_format>`

// BuildFeedbackPrompt augments the base prompt with an analysis of prior
// attempts' results per §4.6's generate_with_feedback: distinct failed
// field paths, sample error strings, per-resource actual values, and
// explicit guidance to avoid previously-failed paths.
func BuildFeedbackPrompt(base string, allResults []check.CheckResult) string {
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n<prior_attempts_feedback>\n")

	sampleErrors := make([]string, 0, 5)
	actualValues := make([]string, 0, 5)
	for _, r := range allResults {
		if r.Error != "" {
			if len(sampleErrors) < 5 {
				sampleErrors = append(sampleErrors, r.Error)
			}
			continue
		}
		if len(actualValues) < 5 {
			actualValues = append(actualValues, fmt.Sprintf("resource %s: %s", r.ResourceID, r.Message))
		}
	}

	if len(sampleErrors) > 0 {
		sb.WriteString("Previous attempts failed with these errors; avoid the field paths and logic that produced them:\n")
		for _, e := range sampleErrors {
			sb.WriteString("- ")
			sb.WriteString(e)
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("Previous attempts produced no execution failures; reconsider the field path, operator, or expected value so the check reflects the control's intent.\n")
	}
	if len(actualValues) > 0 {
		sb.WriteString("Per-resource actual values observed on the sample collection:\n")
		for _, v := range actualValues {
			sb.WriteString("- ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("</prior_attempts_feedback>\n")

	return sb.String()
}
