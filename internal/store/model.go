// Package store implements the Result Writer: archiving prior current
// results into history and inserting a freshly aggregated current row,
// atomically per (customer, connection, check) key, against either a
// relational backend or a CSV directory.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/check"
)

// Result is the aggregate outcome enum for a ConMonResult row.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPartial Result = "partial"
)

// ConMonResult is the current aggregate roll-up of per-resource
// CheckResults for one (customer, connection, check) key.
type ConMonResult struct {
	ID                uuid.UUID `db:"id" csv:"id"`
	CustomerID        uuid.UUID `db:"customer_id" csv:"customer_id"`
	ConnectionID      uuid.UUID `db:"connection_id" csv:"connection_id"`
	CheckID           uuid.UUID `db:"check_id" csv:"check_id"`
	Result            Result    `db:"result" csv:"result"`
	ResultMessage     string    `db:"result_message" csv:"result_message"`
	SuccessCount      int       `db:"success_count" csv:"success_count"`
	FailureCount      int       `db:"failure_count" csv:"failure_count"`
	SuccessPercentage float64   `db:"success_percentage" csv:"success_percentage"`
	SuccessResources  []string  `db:"success_resources" csv:"success_resources"`
	FailedResources   []string  `db:"failed_resources" csv:"failed_resources"`
	Exclusions        []string  `db:"exclusions" csv:"exclusions"`
	ResourceJSON      string    `db:"resource_json" csv:"resource_json"`
	CreatedAt         time.Time `db:"created_at" csv:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" csv:"updated_at"`
}

// ConMonResultHistory is an archived ConMonResult row, additionally
// carrying the timestamp at which it was superseded.
type ConMonResultHistory struct {
	ConMonResult
	ArchivedAt time.Time `db:"archived_at" csv:"archived_at"`
}

// Aggregate implements §4.5 step 3: build the single new current row
// from the incoming per-resource results of one Check evaluation.
//
// Per §4.4, a CheckResult's Passed is never nil: an execution failure
// (missing field, comparison error, sandbox failure) reports
// passed=false with Error populated, the same as a logical failure, so
// it counts toward FailureCount here like any other failed resource.
func Aggregate(checkID uuid.UUID, results []check.CheckResult, resourceJSON string) ConMonResult {
	var success, failed []string
	for _, r := range results {
		if r.Passed != nil && *r.Passed {
			success = append(success, r.ResourceID)
		} else {
			failed = append(failed, r.ResourceID)
		}
	}

	successCount := len(success)
	failureCount := len(failed)

	var pct float64
	if denom := successCount + failureCount; denom > 0 {
		pct = 100 * float64(successCount) / float64(denom)
	}

	var outcome Result
	switch {
	case failureCount == 0 && successCount > 0:
		outcome = ResultSuccess
	case successCount == 0 && failureCount > 0:
		outcome = ResultFailure
	default:
		outcome = ResultPartial
	}

	return ConMonResult{
		ID:                uuid.New(),
		CheckID:           checkID,
		Result:            outcome,
		ResultMessage:     fmt.Sprintf("%d of %d resources passed", successCount, len(results)),
		SuccessCount:      successCount,
		FailureCount:      failureCount,
		SuccessPercentage: pct,
		SuccessResources:  success,
		FailedResources:   failed,
		ResourceJSON:      resourceJSON,
	}
}
