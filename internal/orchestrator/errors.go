package orchestrator

import (
	"errors"

	"github.com/phrazzld/conmon/internal/conmonerr"
)

// Sentinel errors for batch-run failures, usable with errors.Is for
// reliable error classification by callers (cmd/conmon's exit-code
// logic in particular).
var (
	// ErrNoTasks is returned when a batch run is started with an empty
	// task list (e.g. --fresh left nothing to do).
	ErrNoTasks = errors.New("orchestrator: no tasks to run")

	// ErrBatchCancelled is returned when the run's context was
	// cancelled (SIGINT) before all tasks reached a terminal status.
	ErrBatchCancelled = errors.New("orchestrator: batch run cancelled")

	// ErrSampleFetchFailed is returned when the sample ResourceCollection
	// for a (provider, resource_model) could not be fetched or memoised.
	ErrSampleFetchFailed = errors.New("orchestrator: sample fetch failed")
)

// categorize maps a task failure to the kernel's shared error taxonomy,
// matching the teacher's CategorizeOrchestratorError / WrapOrchestratorError
// pattern but targeting conmonerr.Category instead of llm.ErrorCategory.
func categorize(err error) conmonerr.Category {
	if err == nil {
		return conmonerr.CategoryUnknown
	}
	switch {
	case errors.Is(err, ErrSampleFetchFailed):
		return conmonerr.CategoryPersistence
	case errors.Is(err, ErrBatchCancelled):
		return conmonerr.CategoryUnknown
	default:
		if catErr, ok := conmonerr.As(err); ok {
			return catErr.Category()
		}
		return conmonerr.CategoryUnknown
	}
}
