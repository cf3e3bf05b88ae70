package storage

import (
	"context"
	"time"
)

// EventLogEntry records an event consumed by the worker.
type EventLogEntry struct {
	EventID     string
	Type        string
	WorkspaceID string
	ReceiptID   string
	Payload     []byte
	OccurredAt  time.Time
	ProcessedAt time.Time
}

const recordEvent = `
INSERT OR IGNORE INTO event_log (event_id, type, workspace_id, receipt_id, payload, occurred_at, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// RecordEvent stores e unless an entry with the same id exists. It reports
// whether the entry was new.
func (q *Queries) RecordEvent(ctx context.Context, e EventLogEntry) (bool, error) {
	res, err := q.db.ExecContext(ctx, recordEvent,
		e.EventID, e.Type, e.WorkspaceID, e.ReceiptID, string(e.Payload),
		formatTime(e.OccurredAt), formatTime(e.ProcessedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const deleteEvent = `
DELETE FROM event_log WHERE event_id = ?`

// DeleteEvent forgets an event so that a redelivery is processed again.
func (q *Queries) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := q.db.ExecContext(ctx, deleteEvent, eventID)
	return err
}

const countEvents = `
SELECT COUNT(*) FROM event_log WHERE workspace_id = ?`

func (q *Queries) CountEvents(ctx context.Context, workspaceID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEvents, workspaceID).Scan(&n)
	return n, err
}
