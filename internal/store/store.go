package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/check"
)

// CheckResults pairs a Check with the CheckResults its latest evaluation
// produced, the unit of work upsert_current operates on per §4.5.
type CheckResults struct {
	Check        *check.Check
	Results      []check.CheckResult
	ResourceJSON string
}

// Store is the Result Writer's persistence interface. Both the
// relational and CSV adapters implement it identically from the
// kernel's perspective.
type Store interface {
	// UpsertCurrent archives any existing current rows for each
	// (customerID, connectionID, check.ID) key into history, then
	// inserts exactly one freshly aggregated current row per check, per
	// §4.5. The operation is atomic per check key.
	UpsertCurrent(ctx context.Context, customerID, connectionID uuid.UUID, items []CheckResults) error
}
