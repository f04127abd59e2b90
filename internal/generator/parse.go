package generator

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/conmon/internal/check"
	"github.com/phrazzld/conmon/internal/compare"
)

var fencedCodeBlock = regexp.MustCompile("(?s)^```(?:ya?ml)?\\s*\\n(.*?)\\n?```\\s*$")

// stripFencedCode removes a single surrounding ```yaml ... ``` or ``` ... ```
// fence, if present.
func stripFencedCode(s string) string {
	s = strings.TrimSpace(s)
	if m := fencedCodeBlock.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ensureChecksHeader prepends a top-level "checks:" key if the response
// is a bare list or a single mapping rather than the expected
// {checks: [...]} document.
func ensureChecksHeader(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	if strings.HasPrefix(trimmed, "checks:") {
		return s
	}
	if strings.HasPrefix(trimmed, "-") {
		return "checks:\n" + s
	}
	// A single mapping document: wrap it as the sole list entry.
	indented := indentLines(s, "    ")
	return "checks:\n  - " + strings.TrimPrefix(indented, "    ")
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// rawCheckDoc mirrors the YAML shape the LLM is asked to fill in.
type rawCheckDoc struct {
	Checks []rawCheck `yaml:"checks"`
}

type rawCheck struct {
	Name             string           `yaml:"name"`
	Description      string           `yaml:"description"`
	Category         string           `yaml:"category"`
	OutputStatements rawOutputStmts   `yaml:"output_statements"`
	FixDetails       rawFixDetails    `yaml:"fix_details"`
	Metadata         rawMetadata      `yaml:"metadata"`
}

type rawOutputStmts struct {
	Success string `yaml:"success"`
	Failure string `yaml:"failure"`
	Partial string `yaml:"partial"`
}

type rawFixDetails struct {
	Description         string   `yaml:"description"`
	Instructions         []string `yaml:"instructions"`
	EstimatedTime         string   `yaml:"estimated_time"`
	AutomationAvailable bool     `yaml:"automation_available"`
}

type rawMetadata struct {
	ResourceType  string      `yaml:"resource_type"`
	FieldPath     string      `yaml:"field_path"`
	Operation     rawOperation `yaml:"operation"`
	ExpectedValue interface{} `yaml:"expected_value"`
	Tags          []string    `yaml:"tags"`
	Severity      string      `yaml:"severity"`
	Category      string      `yaml:"category"`
}

type rawOperation struct {
	Name  string `yaml:"name"`
	Logic string `yaml:"logic"`
}

// ParseResponse implements §4.6's response-parsing pipeline: strip fenced
// code markers, ensure a top-level checks: header, parse YAML, require
// exactly one entry, and validate required keys. Returns a *check.Check
// with audit fields unset (the caller stamps ID/CreatedAt/CreatedBy).
func ParseResponse(response string) (*check.Check, error) {
	cleaned := stripFencedCode(response)
	cleaned = ensureChecksHeader(cleaned)

	var doc rawCheckDoc
	if err := yaml.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("generator: parsing response YAML: %w", err)
	}
	if len(doc.Checks) != 1 {
		return nil, fmt.Errorf("generator: expected exactly one check entry, got %d", len(doc.Checks))
	}

	raw := doc.Checks[0]
	if err := validateRequiredKeys(raw); err != nil {
		return nil, err
	}

	c := &check.Check{
		Name:        raw.Name,
		Description: raw.Description,
		Category:    raw.Category,
		OutputStatements: check.OutputStatements{
			Success: raw.OutputStatements.Success,
			Failure: raw.OutputStatements.Failure,
			Partial: raw.OutputStatements.Partial,
		},
		FixDetails: check.FixDetails{
			Description:         raw.FixDetails.Description,
			Instructions:        raw.FixDetails.Instructions,
			EstimatedTime:       raw.FixDetails.EstimatedTime,
			AutomationAvailable: raw.FixDetails.AutomationAvailable,
		},
		Metadata: check.Metadata{
			ResourceType: raw.Metadata.ResourceType,
			FieldPath:    raw.Metadata.FieldPath,
			Operation: check.Operation{
				Name:  compare.Operator(raw.Metadata.Operation.Name),
				Logic: raw.Metadata.Operation.Logic,
			},
			ExpectedValue: raw.Metadata.ExpectedValue,
			Tags:          raw.Metadata.Tags,
			Severity:      raw.Metadata.Severity,
			Category:      raw.Metadata.Category,
		},
	}
	return c, nil
}

func validateRequiredKeys(raw rawCheck) error {
	var missing []string
	if raw.Name == "" {
		missing = append(missing, "name")
	}
	if raw.Metadata.ResourceType == "" {
		missing = append(missing, "metadata.resource_type")
	}
	if raw.Metadata.FieldPath == "" {
		missing = append(missing, "metadata.field_path")
	}
	if raw.Metadata.Operation.Name == "" {
		missing = append(missing, "metadata.operation.name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("generator: response missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
