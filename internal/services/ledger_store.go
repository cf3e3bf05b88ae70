package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// LedgerStore is the append-only transaction log of each workspace. Rows
// are never removed; corrections edit them in place.
type LedgerStore struct {
	deps Deps
}

func NewLedgerStore(deps Deps) *LedgerStore {
	return &LedgerStore{deps: deps}
}

// Append adds rows to the end of the workspace ledger. Every row is checked
// before anything is written: one bad row rejects the batch.
func (l *LedgerStore) Append(ctx context.Context, workspace string, rows []core.Transaction) ([]core.Transaction, error) {
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	unlock := l.deps.Locks.Lock(workspace, lock.Ledger)
	defer unlock()

	var stored []core.Transaction
	err := l.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := getWorkspace(ctx, q, workspace); err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		stored, err = appendRows(ctx, q, workspace, rows, core.CategoryNames(cats))
		return err
	})
	if err != nil {
		return nil, core.Storage(err, "append ledger")
	}
	slog.InfoContext(ctx, "Ledger rows appended", "workspace_id", workspace, "rows", len(stored))
	l.deps.committed(ctx, events.New(events.LedgerAppended, workspace))
	return stored, nil
}

// appendRows inserts rows in order. known holds the ids that exist in the
// workspace catalog.
func appendRows(ctx context.Context, q *storage.Queries, workspace string, rows []core.Transaction, known map[int64]string) ([]core.Transaction, error) {
	for i, r := range rows {
		if r.CategoryID == core.UncategorizedID {
			continue
		}
		if _, ok := known[r.CategoryID]; !ok {
			return nil, core.Validation("row %d: unknown category id %d", i, r.CategoryID)
		}
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		r.WorkspaceID = workspace
		id, err := q.InsertLedgerRow(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("insert ledger row: %w", err)
		}
		r.RowID = id
		out = append(out, r)
	}
	return out, nil
}

// ApplyCorrection edits the rows of receiptID addressed by each fix's line,
// counted over that receipt's rows in stored order. Lines out of range are
// ignored.
func (l *LedgerStore) ApplyCorrection(ctx context.Context, receiptID string, fixes []core.Fix) error {
	rows, err := l.deps.Repo.Queries().ListLedgerByReceipt(ctx, receiptID)
	if err != nil {
		return core.Storage(err, "list receipt rows")
	}
	if len(rows) == 0 {
		slog.WarnContext(ctx, "No ledger rows for receipt, correction ignored", "receipt_id", receiptID)
		return nil
	}
	workspace := rows[0].WorkspaceID

	unlock := l.deps.Locks.Lock(workspace, lock.Ledger)
	defer unlock()

	var changed int
	err = l.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		changed, err = applyCorrection(ctx, q, workspace, receiptID, fixes)
		return err
	})
	if err != nil {
		return core.Storage(err, "apply correction")
	}
	slog.InfoContext(ctx, "Ledger corrected", "receipt_id", receiptID, "rows_changed", changed)
	l.deps.committed(ctx, events.New(events.ReceiptCorrected, workspace).WithReceipt(receiptID))
	return nil
}

// applyCorrection rewrites the addressed rows and returns how many changed.
// A fix naming a category missing from the catalog fails the whole call.
func applyCorrection(ctx context.Context, q *storage.Queries, workspace, receiptID string, fixes []core.Fix) (int, error) {
	if err := checkFixCategories(ctx, q, workspace, fixes); err != nil {
		return 0, err
	}
	rows, err := q.ListLedgerByReceipt(ctx, receiptID)
	if err != nil {
		return 0, fmt.Errorf("list receipt rows: %w", err)
	}
	touched := make(map[int]bool)
	for _, f := range fixes {
		if f.Line < 0 || f.Line >= len(rows) {
			continue
		}
		r := &rows[f.Line]
		f.Apply(&r.Text, &r.Amount, &r.CategoryID)
		touched[f.Line] = true
	}
	for line := range touched {
		if err := q.UpdateLedgerRow(ctx, rows[line]); err != nil {
			return 0, fmt.Errorf("update ledger row: %w", err)
		}
	}
	return len(touched), nil
}

func checkFixCategories(ctx context.Context, q *storage.Queries, workspace string, fixes []core.Fix) error {
	var cats map[int64]string
	for _, f := range fixes {
		if f.CategoryID == nil || *f.CategoryID == core.UncategorizedID {
			continue
		}
		if cats == nil {
			list, err := q.ListCategories(ctx, workspace)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			cats = core.CategoryNames(list)
		}
		if _, ok := cats[*f.CategoryID]; !ok {
			return core.Validation("line %d: unknown category id %d", f.Line, *f.CategoryID)
		}
	}
	for _, f := range fixes {
		if f.Text != nil && core.NormalizeName(*f.Text) == "" {
			return core.Validation("line %d: text must not be empty", f.Line)
		}
	}
	return nil
}

// All returns every row of the workspace ledger in stored order.
func (l *LedgerStore) All(ctx context.Context, workspace string) ([]core.Transaction, error) {
	q := l.deps.Repo.Queries()
	if _, err := getWorkspace(ctx, q, workspace); err != nil {
		return nil, err
	}
	rows, err := q.ListLedger(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list ledger")
	}
	return rows, nil
}

// Query returns one filtered page of the ledger with category names.
func (l *LedgerStore) Query(ctx context.Context, workspace string, lq core.LedgerQuery) (core.LedgerPage, error) {
	lq, err := lq.Normalize()
	if err != nil {
		return core.LedgerPage{}, err
	}
	q := l.deps.Repo.Queries()
	if _, err := getWorkspace(ctx, q, workspace); err != nil {
		return core.LedgerPage{}, err
	}
	rows, total, err := q.QueryLedger(ctx, storage.LedgerFilter{
		WorkspaceID: workspace,
		Date:        lq.Date,
		CategoryID:  lq.CategoryID,
		Offset:      lq.Offset,
		Limit:       lq.Limit,
	})
	if err != nil {
		return core.LedgerPage{}, core.Storage(err, "query ledger")
	}
	cats, err := q.ListCategories(ctx, workspace)
	if err != nil {
		return core.LedgerPage{}, core.Storage(err, "list categories")
	}
	names := core.CategoryNames(cats)

	page := core.LedgerPage{Rows: make([]core.LedgerEntry, 0, len(rows)), Total: total, Offset: lq.Offset, Limit: lq.Limit}
	for _, r := range rows {
		page.Rows = append(page.Rows, core.LedgerEntry{Transaction: r, CategoryName: core.NameFor(names, r.CategoryID)})
	}
	return page, nil
}
