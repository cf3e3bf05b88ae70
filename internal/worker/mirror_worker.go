package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/sheets"
	"tally/internal/storage"
)

// Source delivers events to a handler until ctx is done. A handler error
// asks for redelivery.
type Source interface {
	Consume(ctx context.Context, handler func(context.Context, events.Event) error) error
}

// MirrorWorker keeps the ledger mirror in step with committed mutations.
// Every event is recorded in the event log first, so a redelivered event is
// applied once.
type MirrorWorker struct {
	repo   *storage.Repository
	mirror sheets.LedgerMirror
	now    func() time.Time
}

func NewMirrorWorker(repo *storage.Repository, mirror sheets.LedgerMirror) *MirrorWorker {
	return &MirrorWorker{repo: repo, mirror: mirror, now: time.Now}
}

// Run consumes src until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, src Source) error {
	slog.InfoContext(ctx, "Mirror worker started")
	err := src.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle applies one event.
func (w *MirrorWorker) Handle(ctx context.Context, e events.Event) error {
	payload, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	q := w.repo.Queries()
	fresh, err := q.RecordEvent(ctx, storage.EventLogEntry{
		EventID:     e.ID,
		Type:        string(e.Type),
		WorkspaceID: e.WorkspaceID,
		ReceiptID:   e.ReceiptID,
		Payload:     payload,
		OccurredAt:  e.OccurredAt,
		ProcessedAt: w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if !fresh {
		slog.InfoContext(ctx, "Duplicate event skipped", "event_id", e.ID, "type", e.Type)
		return nil
	}

	if err := w.apply(ctx, e); err != nil {
		if derr := q.DeleteEvent(ctx, e.ID); derr != nil {
			slog.ErrorContext(ctx, "Failed to forget event after mirror error", "event_id", e.ID, "error", derr)
		}
		return err
	}
	return nil
}

func (w *MirrorWorker) apply(ctx context.Context, e events.Event) error {
	if e.Type == events.WorkspaceDeleted {
		if err := w.mirror.Remove(ctx, e.WorkspaceID); err != nil {
			return fmt.Errorf("remove mirror: %w", err)
		}
		return nil
	}
	return w.SyncWorkspace(ctx, e.WorkspaceID)
}

// SyncWorkspace rewrites the mirror of workspace from the current ledger. A
// workspace that no longer exists is skipped; its deletion event removes
// the mirror.
func (w *MirrorWorker) SyncWorkspace(ctx context.Context, workspace string) error {
	q := w.repo.Queries()
	if _, err := q.GetWorkspace(ctx, workspace); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "Workspace gone, mirror sync skipped", "workspace_id", workspace)
			return nil
		}
		return fmt.Errorf("get workspace: %w", err)
	}
	rows, err := q.ListLedger(ctx, workspace)
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	cats, err := q.ListCategories(ctx, workspace)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	names := core.CategoryNames(cats)
	entries := make([]core.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, core.LedgerEntry{Transaction: r, CategoryName: core.NameFor(names, r.CategoryID)})
	}
	if err := w.mirror.Mirror(ctx, workspace, entries); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}
	slog.InfoContext(ctx, "Workspace mirrored", "workspace_id", workspace, "rows", len(entries))
	return nil
}
