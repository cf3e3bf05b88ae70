package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// WorkspaceService manages workspaces and their ownership.
type WorkspaceService struct {
	deps Deps
	now  func() time.Time
}

func NewWorkspaceService(deps Deps) *WorkspaceService {
	return &WorkspaceService{deps: deps, now: time.Now}
}

func (s *WorkspaceService) Create(ctx context.Context, owner, name string) (core.Workspace, error) {
	if owner == "" {
		return core.Workspace{}, core.Validation("owner is required")
	}
	n, err := core.ValidateWorkspaceName(name)
	if err != nil {
		return core.Workspace{}, err
	}
	w := core.Workspace{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      n,
		CreatedAt: s.now().UTC(),
	}
	if err := s.deps.Repo.Queries().CreateWorkspace(ctx, w); err != nil {
		return core.Workspace{}, core.Storage(err, "create workspace")
	}
	slog.InfoContext(ctx, "Workspace created", "workspace_id", w.ID, "name", w.Name)
	return w, nil
}

// List returns the owner's workspaces, newest first.
func (s *WorkspaceService) List(ctx context.Context, owner string) ([]core.Workspace, error) {
	ws, err := s.deps.Repo.Queries().ListWorkspacesByOwner(ctx, owner)
	if err != nil {
		return nil, core.Storage(err, "list workspaces")
	}
	if ws == nil {
		ws = []core.Workspace{}
	}
	return ws, nil
}

func (s *WorkspaceService) Get(ctx context.Context, id, owner string) (core.WorkspaceDetail, error) {
	q := s.deps.Repo.Queries()
	w, err := authorize(ctx, q, id, owner)
	if err != nil {
		return core.WorkspaceDetail{}, err
	}
	rows, err := q.ListLedger(ctx, id)
	if err != nil {
		return core.WorkspaceDetail{}, core.Storage(err, "list ledger")
	}
	cats, err := q.ListCategories(ctx, id)
	if err != nil {
		return core.WorkspaceDetail{}, core.Storage(err, "list categories")
	}
	if cats == nil {
		cats = []core.Category{}
	}
	total := core.SumAmounts(rows)
	return core.WorkspaceDetail{Workspace: w, TotalSpent: core.Round2(total), Categories: cats}, nil
}

// Authorize checks that owner holds workspace id.
func (s *WorkspaceService) Authorize(ctx context.Context, id, owner string) (core.Workspace, error) {
	return authorize(ctx, s.deps.Repo.Queries(), id, owner)
}

// Update patches name and archived flag. An archived workspace only accepts
// a patch that unarchives it.
func (s *WorkspaceService) Update(ctx context.Context, id, owner string, patch core.WorkspacePatch) (core.Workspace, error) {
	var updated core.Workspace
	err := s.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		w, err := authorize(ctx, q, id, owner)
		if err != nil {
			return err
		}
		unarchiving := patch.Archived != nil && !*patch.Archived
		if w.Archived && !unarchiving {
			return core.Conflict("workspace %s is archived", id)
		}
		if patch.Name != nil {
			n, err := core.ValidateWorkspaceName(*patch.Name)
			if err != nil {
				return err
			}
			w.Name = n
		}
		if patch.Archived != nil {
			w.Archived = *patch.Archived
		}
		if err := q.UpdateWorkspace(ctx, w); err != nil {
			return fmt.Errorf("update workspace: %w", err)
		}
		updated = w
		return nil
	})
	if err != nil {
		return core.Workspace{}, core.Storage(err, "update workspace")
	}
	slog.InfoContext(ctx, "Workspace updated", "workspace_id", id, "archived", updated.Archived)
	return updated, nil
}

// Delete removes the workspace with its ledger, categories and budgets.
// Archived receipts are kept.
func (s *WorkspaceService) Delete(ctx context.Context, id, owner string) error {
	unlock := s.deps.Locks.Lock(id, lock.Categories, lock.Ledger, lock.Receipts, lock.Budgets)
	defer unlock()

	err := s.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := authorize(ctx, q, id, owner); err != nil {
			return err
		}
		if err := q.DeleteWorkspaceLedger(ctx, id); err != nil {
			return fmt.Errorf("delete ledger: %w", err)
		}
		if err := q.DeleteWorkspaceBudgets(ctx, id); err != nil {
			return fmt.Errorf("delete budgets: %w", err)
		}
		if err := q.DeleteWorkspaceCategories(ctx, id); err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}
		if err := q.DeleteWorkspace(ctx, id); err != nil {
			return fmt.Errorf("delete workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Storage(err, "delete workspace")
	}

	slog.InfoContext(ctx, "Workspace deleted", "workspace_id", id)
	s.deps.committed(ctx, events.New(events.WorkspaceDeleted, id))
	return nil
}
