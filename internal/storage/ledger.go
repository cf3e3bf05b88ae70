package storage

import (
	"context"
	"strings"

	"tally/internal/core"
)

const insertLedgerRow = `
INSERT INTO ledger (workspace_id, date, text, amount, category_id, receipt_id)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertLedgerRow(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertLedgerRow, t.WorkspaceID, t.Date, t.Text, t.Amount.String(), t.CategoryID, t.ReceiptID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const ledgerColumns = `id, workspace_id, date, text, amount, category_id, receipt_id`

const listLedger = `
SELECT ` + ledgerColumns + ` FROM ledger WHERE workspace_id = ? ORDER BY id`

func (q *Queries) ListLedger(ctx context.Context, workspaceID string) ([]core.Transaction, error) {
	return q.scanLedger(ctx, listLedger, workspaceID)
}

const listLedgerByReceipt = `
SELECT ` + ledgerColumns + ` FROM ledger WHERE receipt_id = ? ORDER BY id`

// ListLedgerByReceipt returns the rows of one receipt in stored order.
func (q *Queries) ListLedgerByReceipt(ctx context.Context, receiptID string) ([]core.Transaction, error) {
	return q.scanLedger(ctx, listLedgerByReceipt, receiptID)
}

const updateLedgerRow = `
UPDATE ledger SET text = ?, amount = ?, category_id = ? WHERE id = ?`

func (q *Queries) UpdateLedgerRow(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, updateLedgerRow, t.Text, t.Amount.String(), t.CategoryID, t.RowID)
	return err
}

const reassignLedgerCategory = `
UPDATE ledger SET category_id = ? WHERE workspace_id = ? AND category_id = ?`

// ReassignLedgerCategory moves every row of a category to another id and
// returns the number of rows touched.
func (q *Queries) ReassignLedgerCategory(ctx context.Context, workspaceID string, from, to int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, reassignLedgerCategory, to, workspaceID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteWorkspaceLedger = `
DELETE FROM ledger WHERE workspace_id = ?`

func (q *Queries) DeleteWorkspaceLedger(ctx context.Context, workspaceID string) error {
	_, err := q.db.ExecContext(ctx, deleteWorkspaceLedger, workspaceID)
	return err
}

// LedgerFilter narrows a ledger page. Zero values mean no filter.
type LedgerFilter struct {
	WorkspaceID string
	Date        string
	CategoryID  *int64
	Offset      int
	Limit       int
}

func (f LedgerFilter) where() (string, []interface{}) {
	clauses := []string{"workspace_id = ?"}
	args := []interface{}{f.WorkspaceID}
	if f.Date != "" {
		clauses = append(clauses, "date = ?")
		args = append(args, f.Date)
	}
	if f.CategoryID != nil {
		clauses = append(clauses, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	return strings.Join(clauses, " AND "), args
}

// QueryLedger returns one page of rows and the number of rows matching the
// filter.
func (q *Queries) QueryLedger(ctx context.Context, f LedgerFilter) ([]core.Transaction, int64, error) {
	where, args := f.where()

	var total int64
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + ledgerColumns + " FROM ledger WHERE " + where + " ORDER BY id LIMIT ? OFFSET ?"
	rows, err := q.scanLedger(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (q *Queries) scanLedger(ctx context.Context, query string, args ...interface{}) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.RowID, &t.WorkspaceID, &t.Date, &t.Text, &t.Amount, &t.CategoryID, &t.ReceiptID); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
