package auditlog

import "context"

// NoOpAuditLogger discards every entry. Used when audit logging is
// disabled (e.g. in unit tests or `--no-audit-log` runs).
type NoOpAuditLogger struct{}

// NewNoOpAuditLogger returns a logger that discards all entries.
func NewNoOpAuditLogger() *NoOpAuditLogger {
	return &NoOpAuditLogger{}
}

func (l *NoOpAuditLogger) Log(ctx context.Context, entry AuditEntry) error {
	return nil
}

func (l *NoOpAuditLogger) LogOp(ctx context.Context, operation, status string, inputs, outputs map[string]interface{}, err error) error {
	return nil
}

func (l *NoOpAuditLogger) LogLegacy(entry AuditEntry) error {
	return nil
}

func (l *NoOpAuditLogger) LogOpLegacy(operation, status string, inputs, outputs map[string]interface{}, err error) error {
	return nil
}

func (l *NoOpAuditLogger) Close() error {
	return nil
}
