package storage

import (
	"context"

	"tally/internal/core"
)

const listCategories = `
SELECT id, name FROM categories WHERE workspace_id = ? ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context, workspaceID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `
SELECT id, name FROM categories WHERE workspace_id = ? AND id = ?`

func (q *Queries) GetCategory(ctx context.Context, workspaceID string, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, getCategory, workspaceID, id).Scan(&c.ID, &c.Name)
	return c, err
}

const maxCategoryID = `
SELECT COALESCE(MAX(id), 0) FROM categories WHERE workspace_id = ?`

func (q *Queries) MaxCategoryID(ctx context.Context, workspaceID string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, maxCategoryID, workspaceID).Scan(&id)
	return id, err
}

const countCategories = `
SELECT COUNT(*) FROM categories WHERE workspace_id = ?`

func (q *Queries) CountCategories(ctx context.Context, workspaceID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories, workspaceID).Scan(&n)
	return n, err
}

const insertCategory = `
INSERT INTO categories (workspace_id, id, name) VALUES (?, ?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, workspaceID string, c core.Category) error {
	_, err := q.db.ExecContext(ctx, insertCategory, workspaceID, c.ID, c.Name)
	return err
}

const renameCategory = `
UPDATE categories SET name = ? WHERE workspace_id = ? AND id = ?`

func (q *Queries) RenameCategory(ctx context.Context, workspaceID string, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, renameCategory, name, workspaceID, id)
	return err
}

const deleteCategory = `
DELETE FROM categories WHERE workspace_id = ? AND id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, workspaceID string, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, workspaceID, id)
	return err
}

const deleteWorkspaceCategories = `
DELETE FROM categories WHERE workspace_id = ?`

func (q *Queries) DeleteWorkspaceCategories(ctx context.Context, workspaceID string) error {
	_, err := q.db.ExecContext(ctx, deleteWorkspaceCategories, workspaceID)
	return err
}
