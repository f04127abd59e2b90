package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/check"
)

// CheckRepository is the collaborator interface the orchestrator uses
// to persist a generated Check and its control mapping once the Check
// Generator accepts it. It is distinct from store.Store, which persists
// ConMonResult current/history rows for continuous monitoring (§4.5);
// this interface targets the checks and control_checks_mapping tables
// of spec.md §6. Concrete DB/CSV implementations live outside the
// kernel per spec.md's persistence-backend Non-goal.
type CheckRepository interface {
	SaveCheck(ctx context.Context, c *check.Check) error
	MapControlCheck(ctx context.Context, controlID, checkID uuid.UUID) error
}
