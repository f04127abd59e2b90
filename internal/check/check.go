// Package check implements the Check data model and its evaluator: the
// binding of a field-path extractor and a comparison operator to a
// compiled resource type, producing a CheckResult per matching resource.
package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/compare"
	"github.com/phrazzld/conmon/internal/conmonerr"
	"github.com/phrazzld/conmon/internal/fieldpath"
	"github.com/phrazzld/conmon/internal/schema"
)

// OutputStatements holds the human-readable messages a Check may report
// for each aggregate outcome.
type OutputStatements struct {
	Success string `json:"success" db:"output_statements.success" csv:"output_statements.success"`
	Failure string `json:"failure" db:"output_statements.failure" csv:"output_statements.failure"`
	Partial string `json:"partial" db:"output_statements.partial" csv:"output_statements.partial"`
}

// FixDetails describes remediation guidance. Only descriptions are
// stored; the kernel never executes remediation.
type FixDetails struct {
	Description        string   `json:"description" db:"fix_details.description" csv:"fix_details.description"`
	Instructions        []string `json:"instructions" db:"fix_details.instructions" csv:"fix_details.instructions"`
	EstimatedTime        string   `json:"estimated_time" db:"fix_details.estimated_time" csv:"fix_details.estimated_time"`
	AutomationAvailable bool     `json:"automation_available" db:"fix_details.automation_available" csv:"fix_details.automation_available"`
}

// Operation describes the comparison a Check performs: a named operator
// plus, for operator "custom", the predicate source text.
type Operation struct {
	Name  compare.Operator `json:"name" db:"metadata.operation.name" csv:"metadata.operation.name"`
	Logic string           `json:"logic,omitempty" db:"metadata.operation.logic" csv:"metadata.operation.logic"`
}

// Metadata binds a Check to a resource type, a field path, and the
// comparison it performs against the extracted value.
type Metadata struct {
	ResourceType  string        `json:"resource_type" db:"metadata.resource_type" csv:"metadata.resource_type"`
	FieldPath     string        `json:"field_path" db:"metadata.field_path" csv:"metadata.field_path"`
	Operation     Operation     `json:"operation" db:"metadata.operation" csv:"metadata.operation"`
	ExpectedValue interface{}   `json:"expected_value,omitempty" db:"metadata.expected_value" csv:"metadata.expected_value"`
	Tags          []string      `json:"tags,omitempty" db:"metadata.tags" csv:"metadata.tags"`
	Severity      string        `json:"severity" db:"metadata.severity" csv:"metadata.severity"`
	Category      string        `json:"category" db:"metadata.category" csv:"metadata.category"`
}

// Check is the central entity of the evaluation kernel: a declarative
// rule pairing a field path and a predicate against one resource type.
type Check struct {
	ID          uuid.UUID `json:"id" db:"id" csv:"id"`
	Name        string    `json:"name" db:"name" csv:"name"`
	Description string    `json:"description" db:"description" csv:"description"`
	Category    string    `json:"category" db:"category" csv:"category"`

	CreatedBy string    `json:"created_by" db:"created_by" csv:"created_by"`
	UpdatedBy string    `json:"updated_by" db:"updated_by" csv:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" csv:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted" csv:"is_deleted"`

	OutputStatements OutputStatements `json:"output_statements" db:"output_statements" csv:"output_statements"`
	FixDetails       FixDetails       `json:"fix_details" db:"fix_details" csv:"fix_details"`
	Metadata         Metadata         `json:"metadata" db:"metadata" csv:"metadata"`

	mu                sync.Mutex
	comparisonOp      *comparisonOperation
	comparisonOpBuilt bool
}

// comparisonOperation is the materialised, callable view of
// Metadata.Operation: a closure over the operator and, for custom
// predicates, the validated logic source.
type comparisonOperation struct {
	operator compare.Operator
	logic    string
}

// ComparisonOperation lazily builds and memoises the callable comparison
// view of this Check from Metadata.Operation, per §4.4: "metadata.operation
// and top-level comparison_operation are two views of the same contract;
// the latter is lazily materialised from the former." Returns a
// configuration error if the operator is unknown or custom logic fails
// validation.
func (c *Check) ComparisonOperation() (*comparisonOperation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.comparisonOpBuilt {
		if c.comparisonOp == nil {
			return nil, conmonerr.New(conmonerr.CategoryConfiguration, "check: comparison operation previously failed to materialise")
		}
		return c.comparisonOp, nil
	}
	c.comparisonOpBuilt = true

	op := c.Metadata.Operation
	if !op.Name.Valid() {
		return nil, conmonerr.Newf(conmonerr.CategoryConfiguration, "check: unknown operator %q", op.Name)
	}

	if op.Name == compare.CustomLogic {
		if err := compare.ValidateLogic(op.Logic); err != nil {
			return nil, conmonerr.Wrap(conmonerr.CategoryConfiguration, err)
		}
	} else if c.Metadata.ExpectedValue == nil {
		return nil, conmonerr.New(conmonerr.CategoryConfiguration, "check: expected_value is required for non-custom operators")
	}

	c.comparisonOp = &comparisonOperation{operator: op.Name, logic: op.Logic}
	return c.comparisonOp, nil
}

// Operation returns the raw Metadata.Operation view. Per Open Question
// (b), the source exposes both a broken Check.operation accessor and the
// functional Check.comparison_operation; this accessor is kept for
// parity with that contract but callers should prefer
// ComparisonOperation, which is the one this kernel treats as normative.
func (c *Check) Operation() Operation {
	return c.Metadata.Operation
}

// evaluate runs the materialised comparison against fetched/expected
// values, using the sandbox for custom logic.
func (co *comparisonOperation) evaluate(ctx context.Context, fetched, expected schema.Value, sandboxTimeout time.Duration) (bool, error) {
	if co.operator == compare.CustomLogic {
		return compare.RunCustomPredicate(ctx, co.logic, fetched, expected, sandboxTimeout)
	}
	return compare.Compare(co.operator, fetched, expected)
}

// CheckResult is the outcome of evaluating a Check against one resource.
//
// Passed is never nil: per §4.4, both a logical failure and an
// execution failure (missing field, comparison error, or sandbox
// failure) report passed=false. Execution failures are distinguished
// by a populated Error field, which is what §4.4.1's invalidity rule
// inspects. Passed is kept as *bool rather than bool only so a Check
// result can be marshalled identically to the teacher's db/csv row
// shape elsewhere in the kernel; every constructor in this package
// always sets it.
type CheckResult struct {
	CheckID    uuid.UUID `json:"check_id"`
	ResourceID string    `json:"resource_id"`
	Passed     *bool     `json:"passed"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// Evaluate runs Check.evaluate(resources) per §4.4:
//
//  1. resolve metadata.resource_type; unknown types yield zero results
//  2. filter to matching resources; none matching yields zero results
//  3. for each resource, extract the field value and apply the
//     comparison operation, producing one CheckResult
func (c *Check) Evaluate(ctx context.Context, reg *schema.Registry, resources []schema.Value, sandboxTimeout time.Duration) []CheckResult {
	_, known := reg.Lookup(c.Metadata.ResourceType)
	if !known {
		return nil
	}

	expr, err := fieldpath.Parse(c.Metadata.FieldPath)
	if err != nil {
		// A malformed field path is a configuration problem that
		// should have been caught at materialisation; treat every
		// resource as a missing-field failure rather than panicking.
		return missingFieldResults(c, resources, err)
	}

	op, err := c.ComparisonOperation()
	if err != nil {
		return missingFieldResults(c, resources, err)
	}

	expected := schema.FromNative(c.Metadata.ExpectedValue, "")

	var results []CheckResult
	for _, r := range matchingResources(c.Metadata.ResourceType, resources) {
		results = append(results, c.evaluateOne(ctx, expr, op, r, expected, sandboxTimeout))
	}
	return results
}

func matchingResources(resourceType string, resources []schema.Value) []schema.Value {
	var out []schema.Value
	for _, r := range resources {
		if r.Kind == schema.KindRecord && r.Record != nil && r.Record.TypeName == resourceType {
			out = append(out, r)
		}
	}
	return out
}

func resourceID(r schema.Value) string {
	if idVal, ok := r.Field("id"); ok && idVal.Kind == schema.KindString {
		return idVal.Str
	}
	return ""
}

func missingFieldResults(c *Check, resources []schema.Value, err error) []CheckResult {
	results := make([]CheckResult, 0, len(resources))
	for _, r := range matchingResources(c.Metadata.ResourceType, resources) {
		results = append(results, CheckResult{
			CheckID:    c.ID,
			ResourceID: resourceID(r),
			Passed:     boolPtr(false),
			Message:    fmt.Sprintf("Check %s failed due to missing field", c.Name),
			Error:      fmt.Sprintf("Field extraction failed: %v", err),
		})
	}
	return results
}

func (c *Check) evaluateOne(ctx context.Context, expr fieldpath.Expr, op *comparisonOperation, r schema.Value, expected schema.Value, sandboxTimeout time.Duration) CheckResult {
	rid := resourceID(r)

	fetched, err := fieldpath.Eval(expr, r)
	if err != nil {
		return CheckResult{
			CheckID:    c.ID,
			ResourceID: rid,
			Passed:     boolPtr(false),
			Message:    fmt.Sprintf("Check %s failed due to missing field", c.Name),
			Error:      fmt.Sprintf("Field extraction failed: %v", err),
		}
	}

	passed, err := op.evaluate(ctx, fetched, expected, sandboxTimeout)
	if err != nil {
		return CheckResult{
			CheckID:    c.ID,
			ResourceID: rid,
			Passed:     boolPtr(false),
			Message:    fmt.Sprintf("Check %s failed due to comparison error", c.Name),
			Error:      err.Error(),
		}
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	return CheckResult{
		CheckID:    c.ID,
		ResourceID: rid,
		Passed:     boolPtr(passed),
		Message:    fmt.Sprintf("Check %s %s. Expected: %v, Actual: %v", c.Name, outcome, expected.Native(), fetched.Native()),
	}
}

// Invalid implements §4.4.1: a list of CheckResults is invalid iff it is
// empty, or every result has a populated Error (execution failure for
// every observed resource). Used only by the Check Generator's
// self-improvement loop.
func Invalid(results []CheckResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if r.Error == "" {
			return false
		}
	}
	return true
}
