package storage

import (
	"context"
	"time"

	"tally/internal/core"
)

const upsertBudget = `
INSERT INTO budgets (workspace_id, category_id, limit_amount, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (workspace_id, category_id)
DO UPDATE SET limit_amount = excluded.limit_amount, updated_at = excluded.updated_at`

func (q *Queries) UpsertBudget(ctx context.Context, workspaceID string, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, workspaceID, b.CategoryID, b.Limit.String(), formatTime(time.Now()))
	return err
}

const listBudgets = `
SELECT category_id, limit_amount FROM budgets WHERE workspace_id = ? ORDER BY category_id`

func (q *Queries) ListBudgets(ctx context.Context, workspaceID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.CategoryID, &b.Limit); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteBudget = `
DELETE FROM budgets WHERE workspace_id = ? AND category_id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, workspaceID string, categoryID int64) error {
	_, err := q.db.ExecContext(ctx, deleteBudget, workspaceID, categoryID)
	return err
}

const deleteWorkspaceBudgets = `
DELETE FROM budgets WHERE workspace_id = ?`

func (q *Queries) DeleteWorkspaceBudgets(ctx context.Context, workspaceID string) error {
	_, err := q.db.ExecContext(ctx, deleteWorkspaceBudgets, workspaceID)
	return err
}
