package shared

import (
	"context"
	"errors"
	"time"

	"github.com/quotedesk/quotedesk/internal/platform/db"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalSubmit marks a submit action.
	ApprovalSubmit ApprovalAction = "SUBMIT"
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReject marks a reject action.
	ApprovalReject ApprovalAction = "REJECT"
)

// ApprovalLog represents a single approval record.
type ApprovalLog struct {
	ID        int64
	Module    string
	RefID     int64
	ActorID   int64
	ActorName string
	Action    ApprovalAction
	Note      string
	At        time.Time
}

// ApprovalRecorder persists approval history.
type ApprovalRecorder struct {
	conn db.DBTX
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(conn db.DBTX) *ApprovalRecorder {
	return &ApprovalRecorder{conn: conn}
}

// Record writes an approval entry on conn, usually the transaction that
// changed the document status.
func (r *ApprovalRecorder) Record(ctx context.Context, conn db.DBTX, log ApprovalLog) error {
	if conn == nil {
		if r == nil {
			return errors.New("approval recorder not initialised")
		}
		conn = r.conn
	}
	switch {
	case log.Module == "":
		return errors.New("approval module required")
	case log.ActorID == 0:
		return errors.New("approval actor required")
	case log.RefID == 0:
		return errors.New("approval ref id required")
	case log.Action == "":
		return errors.New("approval action required")
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := conn.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	return err
}

// List returns approvals for module/ref, oldest first.
func (r *ApprovalRecorder) List(ctx context.Context, module string, ref int64) ([]ApprovalLog, error) {
	if r == nil || r.conn == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.conn.Query(ctx, `SELECT a.id, a.module, a.ref_id, a.actor_id, COALESCE(u.name, ''), a.action, a.note, a.at
FROM approvals a LEFT JOIN users u ON u.id = a.actor_id
WHERE a.module = $1 AND a.ref_id = $2 ORDER BY a.at ASC, a.id ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &l.ActorName, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
