package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/quotedesk/quotedesk/internal/platform/db"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Auditor persists audit entries. *AuditLogger is the Postgres implementation.
type Auditor interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	conn db.DBTX
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(conn db.DBTX) *AuditLogger {
	return &AuditLogger{conn: conn}
}

// Record inserts the entry into audit_logs.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.conn == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.conn.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// RecordAudit writes entry through a. The audit trail never fails the
// operation it describes, so errors are logged at warn level. A nil Auditor
// or logger is allowed.
func RecordAudit(ctx context.Context, a Auditor, logger *slog.Logger, entry AuditLog) {
	if a == nil {
		return
	}
	if err := a.Record(ctx, entry); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("record audit log",
			slog.String("action", entry.Action),
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}
