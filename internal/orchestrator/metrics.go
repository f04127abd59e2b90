package orchestrator

import (
	"sort"
	"time"
)

// BatchMetrics are derived, non-authoritative read-only views over the
// status log per spec.md §4.7: "Metrics (derived, not authoritative):
// per-minute rate, ETA for all tasks, ETA for 'all successful' based on
// successful-completion intervals, unique-task counts ignoring retry
// duplicates." Nothing here is persisted or consulted by the scheduler;
// it exists purely for progress reporting.
type BatchMetrics struct {
	TotalTasks     int
	SuccessCount   int
	ErrorCount     int
	PendingCount   int
	RatePerMinute  float64
	ETAAllTasks    time.Duration
	ETAAllSuccess  time.Duration
}

// ComputeMetrics derives BatchMetrics from the current status-log view
// and the full set of tasks a run was started with. now is injected so
// computation is deterministic and testable.
func ComputeMetrics(tasks []Task, current map[TaskKey]StatusRow, runStart, now time.Time) BatchMetrics {
	m := BatchMetrics{TotalTasks: len(tasks)}

	var successTimestamps []time.Time
	for _, t := range tasks {
		row, ok := current[t.Key()]
		if !ok {
			m.PendingCount++
			continue
		}
		switch row.Status {
		case StatusSuccess:
			m.SuccessCount++
			successTimestamps = append(successTimestamps, row.Timestamp)
		case StatusError:
			m.ErrorCount++
		default:
			m.PendingCount++
		}
	}

	elapsed := now.Sub(runStart)
	completed := m.SuccessCount + m.ErrorCount
	if elapsed <= 0 || completed == 0 {
		return m
	}

	m.RatePerMinute = float64(completed) / elapsed.Minutes()
	if m.RatePerMinute > 0 {
		remaining := m.TotalTasks - completed
		m.ETAAllTasks = time.Duration(float64(remaining)/m.RatePerMinute*float64(time.Minute))
	}

	if len(successTimestamps) == 0 || m.SuccessCount == 0 {
		return m
	}
	sort.Slice(successTimestamps, func(i, j int) bool { return successTimestamps[i].Before(successTimestamps[j]) })
	successRate := float64(len(successTimestamps)) / elapsed.Minutes()
	if successRate > 0 {
		remainingSuccesses := m.TotalTasks - m.SuccessCount
		m.ETAAllSuccess = time.Duration(float64(remainingSuccesses) / successRate * float64(time.Minute))
	}

	return m
}
