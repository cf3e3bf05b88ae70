package storage

import (
	"context"

	"tally/internal/core"
)

const createWorkspace = `
INSERT INTO workspaces (id, owner_id, name, created_at, archived)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateWorkspace(ctx context.Context, w core.Workspace) error {
	_, err := q.db.ExecContext(ctx, createWorkspace, w.ID, w.OwnerID, w.Name, formatTime(w.CreatedAt), w.Archived)
	return err
}

const getWorkspace = `
SELECT id, owner_id, name, created_at, archived FROM workspaces WHERE id = ?`

func (q *Queries) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	row := q.db.QueryRowContext(ctx, getWorkspace, id)
	var (
		w       core.Workspace
		created string
	)
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &created, &w.Archived)
	w.CreatedAt = parseTime(created)
	return w, err
}

const listWorkspacesByOwner = `
SELECT id, owner_id, name, created_at, archived FROM workspaces
WHERE owner_id = ?
ORDER BY created_at DESC, id`

func (q *Queries) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]core.Workspace, error) {
	rows, err := q.db.QueryContext(ctx, listWorkspacesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Workspace
	for rows.Next() {
		var (
			w       core.Workspace
			created string
		)
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Name, &created, &w.Archived); err != nil {
			return nil, err
		}
		w.CreatedAt = parseTime(created)
		items = append(items, w)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateWorkspace = `
UPDATE workspaces SET name = ?, archived = ? WHERE id = ?`

func (q *Queries) UpdateWorkspace(ctx context.Context, w core.Workspace) error {
	_, err := q.db.ExecContext(ctx, updateWorkspace, w.Name, w.Archived, w.ID)
	return err
}

const deleteWorkspace = `
DELETE FROM workspaces WHERE id = ?`

func (q *Queries) DeleteWorkspace(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteWorkspace, id)
	return err
}
