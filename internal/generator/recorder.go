package generator

import "context"

// PromptRecorder captures the exact prompt and response text for each
// generation attempt, for post-hoc analysis per spec.md §4.7 "Prompt
// capture". Implementations must not mutate or truncate the text: the
// design calls for persisting the exact input/output.
type PromptRecorder interface {
	RecordAttempt(ctx context.Context, attempt int, prompt, response string, err error)
}

// NoOpPromptRecorder discards every attempt; it is the Generator's
// default when no orchestrator-provided recorder is wired in.
type NoOpPromptRecorder struct{}

func (NoOpPromptRecorder) RecordAttempt(context.Context, int, string, string, error) {}
