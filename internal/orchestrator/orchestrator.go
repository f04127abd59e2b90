// Package orchestrator implements the Batch Orchestrator: it drives the
// Check Generator across controls x providers x resource_models, one
// goroutine per task, with a durable append-only status log, resume and
// error-retry modes, and cooperative cancellation. Grounded on
// internal/thinktank/orchestrator/orchestrator.go's worker-pool +
// rate-limiter + audit-log pattern, retargeted from "one goroutine per
// model" to "one goroutine per (control, provider, resource_model)
// task" per spec.md §4.7 and §5.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/auditlog"
	"github.com/phrazzld/conmon/internal/connector"
	"github.com/phrazzld/conmon/internal/generator"
	"github.com/phrazzld/conmon/internal/logutil"
	"github.com/phrazzld/conmon/internal/metrics"
	"github.com/phrazzld/conmon/internal/ratelimit"
)

// SampleFetcher fetches the sample ResourceCollection used to validate
// a generated Check for one (provider, resource_model) pair. Per §5,
// "the sample ResourceCollection used during generation may be fetched
// once per (provider, resource_model) and memoised" — the Orchestrator
// does that memoisation; SampleFetcher need not cache internally.
type SampleFetcher func(ctx context.Context, provider connector.Type, resourceModelName string) (connector.ResourceCollection, error)

// Config tunes one batch run.
type Config struct {
	// Workers bounds the number of tasks executing concurrently.
	Workers int
	// Fresh, when true, re-runs every task regardless of prior status
	// (skips the default "skip tasks whose current status is success").
	Fresh bool
	// ErrorRetry, when true, restricts the run to tasks whose latest
	// status is a non-success terminal state.
	ErrorRetry bool
	// OutputDir is the root for prompt/response capture (see
	// FilePromptRecorder) and is not used by the status log itself.
	OutputDir string
}

// Orchestrator coordinates one batch run of the Check Generator across
// a set of Tasks.
type Orchestrator struct {
	Generator   *generator.Generator
	CheckRepo   CheckRepository
	StatusLog   StatusLog
	Fetch       SampleFetcher
	AuditLogger auditlog.AuditLogger
	Logger      logutil.LoggerInterface
	Metrics     metrics.Collector
	Config      Config

	sampleMu sync.Mutex
	samples  map[sampleKey]sampleEntry
}

type sampleKey struct {
	provider          connector.Type
	resourceModelName string
}

type sampleEntry struct {
	collection connector.ResourceCollection
	err        error
}

// NewOrchestrator builds an Orchestrator from its collaborators, filling
// in defaults for unset fields.
func NewOrchestrator(gen *generator.Generator, repo CheckRepository, statusLog StatusLog, fetch SampleFetcher, auditLogger auditlog.AuditLogger, logger logutil.LoggerInterface, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if auditLogger == nil {
		auditLogger = auditlog.NewNoOpAuditLogger()
	}
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "")
	}
	return &Orchestrator{
		Generator:   gen,
		CheckRepo:   repo,
		StatusLog:   statusLog,
		Fetch:       fetch,
		AuditLogger: auditLogger,
		Logger:      logger,
		Metrics:     metrics.NewNoopCollector(),
		Config:      cfg,
		samples:     make(map[sampleKey]sampleEntry),
	}
}

// Run executes tasks through the generator's pipeline with a worker
// pool of size Config.Workers, applying resume/error-retry filtering,
// and returns once every runnable task has reached a terminal status or
// ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) error {
	runnable := o.filterTasks(tasks)
	if len(runnable) == 0 {
		return ErrNoTasks
	}

	sem := ratelimit.NewSemaphore(o.Config.Workers)
	var wg sync.WaitGroup

	for _, task := range runnable {
		if ctx.Err() != nil {
			o.writeCancelled(task)
			continue
		}
		if err := sem.Acquire(ctx); err != nil {
			o.writeCancelled(task)
			continue
		}

		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			defer sem.Release()
			o.runTask(ctx, t)
		}(task)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ErrBatchCancelled
	}
	return nil
}

// filterTasks applies the resume (skip current-success) and error-retry
// (only current-error) rules of §4.7.
func (o *Orchestrator) filterTasks(tasks []Task) []Task {
	current := o.StatusLog.CurrentStatuses()
	runnable := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		row, hasStatus := current[t.Key()]

		if o.Config.ErrorRetry {
			if hasStatus && row.Status == StatusError {
				runnable = append(runnable, t)
			}
			continue
		}

		if !o.Config.Fresh && hasStatus && row.Status == StatusSuccess {
			continue
		}
		runnable = append(runnable, t)
	}
	return runnable
}

func (o *Orchestrator) runTask(ctx context.Context, task Task) {
	o.appendStatus(task, StatusRunning, nil, "", 0)

	sample, err := o.fetchSample(ctx, task.Provider, task.ResourceModelName)
	if err != nil {
		o.logAndFail(ctx, task, 0, fmt.Errorf("%w: %v", ErrSampleFetchFailed, err))
		return
	}

	taskGenerator := *o.Generator
	taskGenerator.Recorder = NewFilePromptRecorder(o.Config.OutputDir, task)

	stopTimer := o.Metrics.StartTimer("orchestrator.task.duration", "provider", task.Provider.String())
	result, err := taskGenerator.Generate(ctx, task.Control, task.Provider, task.ResourceModelName, sample)
	stopTimer()
	if err != nil {
		if ctx.Err() != nil {
			o.logAndFail(ctx, task, 0, fmt.Errorf("%w: %v", ErrBatchCancelled, ctx.Err()))
			return
		}
		o.logAndFail(ctx, task, 0, err)
		return
	}

	if err := o.CheckRepo.SaveCheck(ctx, result.Check); err != nil {
		o.logAndFail(ctx, task, result.Attempts, fmt.Errorf("orchestrator: persisting check: %w", err))
		return
	}
	if err := o.CheckRepo.MapControlCheck(ctx, task.Control.ID, result.Check.ID); err != nil {
		o.logAndFail(ctx, task, result.Attempts, fmt.Errorf("orchestrator: persisting control-check mapping: %w", err))
		return
	}

	checkID := result.Check.ID
	o.appendStatus(task, StatusSuccess, &checkID, "", result.Attempts)
	o.Metrics.IncrCounter("orchestrator.task.success", "provider", task.Provider.String())
	_ = o.AuditLogger.LogOp(ctx, "OrchestrateTask", "Success",
		map[string]interface{}{"control": task.Control.ControlName, "resource_model": task.ResourceModelName},
		map[string]interface{}{"check_id": checkID.String()}, nil)
}

func (o *Orchestrator) logAndFail(ctx context.Context, task Task, attempts int, err error) {
	o.appendStatus(task, StatusError, nil, err.Error(), attempts)
	o.Metrics.IncrCounter("orchestrator.task.failure", "provider", task.Provider.String(), "category", categorize(err).String())
	o.Logger.ErrorContext(ctx, "Task failed for control %s: %v", task.Control.ControlName, err)
	_ = o.AuditLogger.LogOp(ctx, "OrchestrateTask", "Failure",
		map[string]interface{}{"control": task.Control.ControlName, "resource_model": task.ResourceModelName, "category": categorize(err).String()},
		nil, err)
}

func (o *Orchestrator) writeCancelled(task Task) {
	o.appendStatus(task, StatusError, nil, ErrBatchCancelled.Error(), 0)
}

func (o *Orchestrator) appendStatus(task Task, status Status, checkID *uuid.UUID, errMsg string, attempts int) {
	row := StatusRow{
		ControlID:    task.Control.ID,
		ControlName:  task.Control.ControlName,
		Provider:     task.Provider,
		ResourceType: task.ResourceModelName,
		Status:       status,
		CheckID:      checkID,
		ErrorMessage: errMsg,
		Timestamp:    time.Now().UTC(),
		Attempts:     attempts,
	}
	if err := o.StatusLog.Append(row); err != nil {
		o.Logger.Error("orchestrator: failed to append status row: %v", err)
	}
}

// fetchSample memoises SampleFetcher by (provider, resource_model) per
// §5: "may be fetched once per (provider, resource_model) and memoised."
func (o *Orchestrator) fetchSample(ctx context.Context, provider connector.Type, resourceModelName string) (connector.ResourceCollection, error) {
	key := sampleKey{provider: provider, resourceModelName: resourceModelName}

	o.sampleMu.Lock()
	if entry, ok := o.samples[key]; ok {
		o.sampleMu.Unlock()
		return entry.collection, entry.err
	}
	o.sampleMu.Unlock()

	collection, err := o.Fetch(ctx, provider, resourceModelName)

	o.sampleMu.Lock()
	o.samples[key] = sampleEntry{collection: collection, err: err}
	o.sampleMu.Unlock()

	return collection, err
}
