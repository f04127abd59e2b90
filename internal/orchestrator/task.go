package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/connector"
	"github.com/phrazzld/conmon/internal/framework"
)

// Status is a task's lifecycle state in the batch status log, per
// spec.md §4.7's state machine: queued -> running -> success, running
// -> error, error -> running (on explicit retry).
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Task identifies one (control, provider, resource_model) unit of work
// the orchestrator drives end-to-end through the generator's
// prompt -> LLM -> parse -> evaluate -> persist pipeline. Control is
// carried in full (not just its ID) because the generator's prompt
// construction needs ControlText/FamilyName.
type Task struct {
	Control           framework.Control
	Provider          connector.Type
	ResourceModelName string
}

// Key identifies the status-log row family for a task; a task's
// "current status" is the latest row for its Key.
func (t Task) Key() TaskKey {
	return TaskKey{ControlID: t.Control.ID, Provider: t.Provider, ResourceModelName: t.ResourceModelName}
}

// TaskKey is the (control_id, provider, resource_type) tuple spec.md
// §4.7 uses to derive a task's current status from the latest row.
type TaskKey struct {
	ControlID         uuid.UUID
	Provider          connector.Type
	ResourceModelName string
}

// StatusRow is one durable, append-only record in the batch status log,
// matching spec.md §4.7's column list exactly.
type StatusRow struct {
	ControlID    uuid.UUID  `json:"control_id"`
	ControlName  string     `json:"control_name"`
	Provider     connector.Type `json:"provider"`
	ResourceType string     `json:"resource_type"`
	Status       Status     `json:"status"`
	CheckID      *uuid.UUID `json:"check_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Attempts     int        `json:"attempts"`
}

// Key extracts the TaskKey a status row belongs to.
func (r StatusRow) Key() TaskKey {
	return TaskKey{ControlID: r.ControlID, Provider: r.Provider, ResourceModelName: r.ResourceType}
}

// Terminal reports whether status ends a task's run without a pending
// retry (success or error are both terminal; queued/running are not).
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}
