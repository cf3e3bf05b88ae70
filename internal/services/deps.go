// Package services implements the workspace, category, budget, ledger,
// receipt and report operations on top of the SQLite repository.
package services

import (
	"context"
	"database/sql"
	"errors"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// Invalidator forgets derived state of a workspace after it changes.
// Forget is called once the workspace itself is gone.
type Invalidator interface {
	Invalidate(workspace string)
	Forget(workspace string)
}

// Deps carries the collaborators shared by every service.
type Deps struct {
	Repo      *storage.Repository
	Locks     *lock.Manager
	Publisher events.Publisher
	Reports   Invalidator
}

// committed runs after a mutation of workspace has been committed.
func (d Deps) committed(ctx context.Context, e events.Event) {
	switch {
	case d.Reports == nil:
	case e.Type == events.WorkspaceDeleted:
		d.Reports.Forget(e.WorkspaceID)
	default:
		d.Reports.Invalidate(e.WorkspaceID)
	}
	events.Emit(ctx, d.Publisher, e)
}

// getWorkspace loads a workspace, mapping a missing row to NotFound.
func getWorkspace(ctx context.Context, q *storage.Queries, id string) (core.Workspace, error) {
	w, err := q.GetWorkspace(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return w, core.NotFound("workspace %s not found", id)
	}
	if err != nil {
		return w, core.Storage(err, "get workspace")
	}
	return w, nil
}

// authorize loads a workspace and checks that owner holds it.
func authorize(ctx context.Context, q *storage.Queries, id, owner string) (core.Workspace, error) {
	w, err := getWorkspace(ctx, q, id)
	if err != nil {
		return w, err
	}
	if w.OwnerID != owner {
		return w, core.Forbidden("workspace %s does not belong to the caller", id)
	}
	return w, nil
}
