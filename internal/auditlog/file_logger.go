package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/phrazzld/conmon/internal/llm"
	"github.com/phrazzld/conmon/internal/logutil"
)

// AuditLogger is the generator/orchestrator collaborator interface for
// recording structured operation history. Both context-aware and legacy
// (pre-correlation-ID) call shapes are kept, mirroring the evolution of
// the interface in the wider codebase.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry) error
	LogOp(ctx context.Context, operation, status string, inputs, outputs map[string]interface{}, err error) error
	LogLegacy(entry AuditEntry) error
	LogOpLegacy(operation, status string, inputs, outputs map[string]interface{}, err error) error
	Close() error
}

// FileAuditLogger writes one JSON-encoded AuditEntry per line to a file.
// Writes are serialised with a mutex and fsync'd so the log is safe for
// concurrent orchestrator workers and durable across process crashes.
type FileAuditLogger struct {
	mu     sync.Mutex
	file   *os.File
	logger logutil.LoggerInterface
	closed bool
}

// NewFileAuditLogger opens (creating if necessary) the JSONL file at path
// for appending.
func NewFileAuditLogger(path string, logger logutil.LoggerInterface) (*FileAuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.ErrorContext(context.Background(), "Failed to open audit log file %s: %v", path, err)
		return nil, fmt.Errorf("auditlog: opening %s: %w", path, err)
	}
	logger.InfoContext(context.Background(), "Opened audit log file %s", path)
	return &FileAuditLogger{file: f, logger: logger}, nil
}

func (l *FileAuditLogger) Log(ctx context.Context, entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if correlationID := logutil.GetCorrelationID(ctx); correlationID != "" {
		if entry.Inputs == nil {
			entry.Inputs = make(map[string]interface{})
		}
		entry.Inputs["correlation_id"] = correlationID
	}

	b, err := json.Marshal(entry)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to marshal audit entry to JSON: %v, Entry: %+v", err, entry)
		return fmt.Errorf("auditlog: marshal entry: %w", err)
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if _, err := l.file.Write(b); err != nil {
		l.logger.ErrorContext(ctx, "Failed to write audit entry: %v", err)
		return fmt.Errorf("auditlog: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		l.logger.ErrorContext(ctx, "Failed to fsync audit log: %v", err)
		return fmt.Errorf("auditlog: fsync: %w", err)
	}
	return nil
}

func (l *FileAuditLogger) LogOp(ctx context.Context, operation, status string, inputs, outputs map[string]interface{}, opErr error) error {
	entry := AuditEntry{
		Operation: operation,
		Status:    status,
		Inputs:    inputs,
		Outputs:   outputs,
		Message:   opMessage(operation, status),
	}
	if opErr != nil {
		entry.Error = &ErrorInfo{Message: opErr.Error(), Type: errorType(opErr)}
	}
	return l.Log(ctx, entry)
}

func (l *FileAuditLogger) LogLegacy(entry AuditEntry) error {
	return l.Log(context.Background(), entry)
}

func (l *FileAuditLogger) LogOpLegacy(operation, status string, inputs, outputs map[string]interface{}, err error) error {
	return l.LogOp(context.Background(), operation, status, inputs, outputs, err)
}

func (l *FileAuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

func opMessage(operation, status string) string {
	switch status {
	case "Success":
		return fmt.Sprintf("%s completed successfully", operation)
	case "InProgress":
		return fmt.Sprintf("%s started", operation)
	case "Failure":
		return fmt.Sprintf("%s failed", operation)
	default:
		return fmt.Sprintf("%s - %s", operation, status)
	}
}

func errorType(err error) string {
	if catErr, ok := llm.IsCategorizedError(err); ok {
		return fmt.Sprintf("Error:%s", catErr.Category().String())
	}
	return "GeneralError"
}
