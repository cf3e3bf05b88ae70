package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/events"
)

func TestCreateAndListWorkspaces(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.workspaces.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	first, err := e.workspaces.Create(ctx, "alice", " First ")
	if err != nil || first.Name != "First" {
		t.Fatalf("Create = %+v, %v", first, err)
	}
	second, _ := e.workspaces.Create(ctx, "alice", "Second")
	e.workspaces.Create(ctx, "bob", "Other")

	list, err := e.workspaces.List(ctx, "alice")
	if err != nil || len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("List = %+v, %v", list, err)
	}

	_, err = e.workspaces.Create(ctx, "alice", strings.Repeat("x", 61))
	assertKind(t, err, core.KindValidation)
	_, err = e.workspaces.Create(ctx, "alice", "")
	assertKind(t, err, core.KindValidation)
}

func TestGetWorkspaceDetail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")
	e.appendRows(t, ws,
		row("2024-01-01", "Milk", "2.005", food, "r1"),
		row("2024-01-01", "Bread", "1", food, "r1"),
	)

	d, err := e.workspaces.Get(ctx, ws, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !d.TotalSpent.Equal(dec("3.01")) || len(d.Categories) != 1 {
		t.Fatalf("detail = %+v", d)
	}
	_, err = e.workspaces.Get(ctx, ws, "bob")
	assertKind(t, err, core.KindForbidden)
	_, err = e.workspaces.Get(ctx, "nope", "alice")
	assertKind(t, err, core.KindNotFound)
}

func TestUpdateArchivedWorkspace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	yes, no := true, false
	name := "Renamed"

	w, err := e.workspaces.Update(ctx, ws, "alice", core.WorkspacePatch{Archived: &yes})
	if err != nil || !w.Archived {
		t.Fatalf("archive = %+v, %v", w, err)
	}

	_, err = e.workspaces.Update(ctx, ws, "alice", core.WorkspacePatch{Name: &name})
	assertKind(t, err, core.KindConflict)

	w, err = e.workspaces.Update(ctx, ws, "alice", core.WorkspacePatch{Name: &name, Archived: &no})
	if err != nil || w.Archived || w.Name != "Renamed" {
		t.Fatalf("unarchive = %+v, %v", w, err)
	}

	_, err = e.workspaces.Update(ctx, ws, "bob", core.WorkspacePatch{Name: &name})
	assertKind(t, err, core.KindForbidden)
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")
	e.appendRows(t, ws, row("2024-01-01", "Milk", "2", food, "r1"))
	if err := e.budgets.Upsert(ctx, ws, food, dec("10")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	assertKind(t, e.workspaces.Delete(ctx, ws, "bob"), core.KindForbidden)
	if err := e.workspaces.Delete(ctx, ws, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	q := e.deps.Repo.Queries()
	if rows, _ := q.ListLedger(ctx, ws); len(rows) != 0 {
		t.Fatalf("ledger kept %d rows", len(rows))
	}
	if cats, _ := q.ListCategories(ctx, ws); len(cats) != 0 {
		t.Fatalf("categories kept: %+v", cats)
	}
	if b, _ := q.ListBudgets(ctx, ws); len(b) != 0 {
		t.Fatalf("budgets kept: %+v", b)
	}
	_, err := e.workspaces.Get(ctx, ws, "alice")
	assertKind(t, err, core.KindNotFound)

	types := e.recorder.Types()
	if types[len(types)-1] != events.WorkspaceDeleted {
		t.Fatalf("events = %v", types)
	}
}
