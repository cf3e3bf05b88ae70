package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// CategoryRegistry owns the per-workspace category catalog. Ids are
// allocated as max+1 under the workspace's categories lock.
type CategoryRegistry struct {
	deps Deps
}

func NewCategoryRegistry(deps Deps) *CategoryRegistry {
	return &CategoryRegistry{deps: deps}
}

// Allocate returns the id of the category named name, creating it if no
// category of that name exists (case-insensitive).
func (r *CategoryRegistry) Allocate(ctx context.Context, workspace, name string) (int64, error) {
	n, err := core.ValidateCategoryName(name)
	if err != nil {
		return 0, err
	}

	unlock := r.deps.Locks.Lock(workspace, lock.Categories)
	defer unlock()

	var (
		id      int64
		created bool
	)
	err = r.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := getWorkspace(ctx, q, workspace); err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		c, isNew, err := allocate(ctx, q, workspace, cats, n)
		id, created = c.ID, isNew
		return err
	})
	if err != nil {
		return 0, core.Storage(err, "allocate category")
	}
	if created {
		r.deps.committed(ctx, events.New(events.CategoryAdded, workspace).WithCategory(id))
	}
	return id, nil
}

// allocate resolves name against cats, inserting a new category with the
// next id when there is no match. The bool reports whether it was inserted.
func allocate(ctx context.Context, q *storage.Queries, workspace string, cats []core.Category, name string) (core.Category, bool, error) {
	if c, ok := findByName(cats, name); ok {
		return c, false, nil
	}
	c := core.Category{ID: nextID(cats), Name: name}
	if err := q.InsertCategory(ctx, workspace, c); err != nil {
		return core.Category{}, false, fmt.Errorf("insert category: %w", err)
	}
	slog.InfoContext(ctx, "Category allocated", "workspace_id", workspace, "category_id", c.ID, "name", name)
	return c, true, nil
}

func findByName(cats []core.Category, name string) (core.Category, bool) {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

func nextID(cats []core.Category) int64 {
	var top int64
	for _, c := range cats {
		if c.ID > top {
			top = c.ID
		}
	}
	return top + 1
}

// Add creates a category. A name already present (case-insensitive) is a
// conflict.
func (r *CategoryRegistry) Add(ctx context.Context, workspace, owner, name string) (core.Category, error) {
	n, err := core.ValidateCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}

	unlock := r.deps.Locks.Lock(workspace, lock.Categories)
	defer unlock()

	var c core.Category
	err = r.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := authorize(ctx, q, workspace, owner); err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		if existing, ok := findByName(cats, n); ok {
			return core.Conflict("category %q already exists", existing.Name)
		}
		c = core.Category{ID: nextID(cats), Name: n}
		if err := q.InsertCategory(ctx, workspace, c); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Category{}, core.Storage(err, "add category")
	}
	slog.InfoContext(ctx, "Category added", "workspace_id", workspace, "category_id", c.ID, "name", c.Name)
	r.deps.committed(ctx, events.New(events.CategoryAdded, workspace).WithCategory(c.ID))
	return c, nil
}

// Initialize adds every name of a comma separated list that is not already
// in the catalog, with consecutive ids. It returns only the new categories.
func (r *CategoryRegistry) Initialize(ctx context.Context, workspace, owner, csv string) ([]core.Category, error) {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if n := core.NormalizeName(part); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, core.Validation("no valid category names")
	}

	unlock := r.deps.Locks.Lock(workspace, lock.Categories)
	defer unlock()

	added := []core.Category{}
	err := r.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := authorize(ctx, q, workspace, owner); err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		for _, n := range names {
			if _, ok := findByName(cats, n); ok {
				continue
			}
			c := core.Category{ID: nextID(cats), Name: n}
			if err := q.InsertCategory(ctx, workspace, c); err != nil {
				return fmt.Errorf("insert category: %w", err)
			}
			cats = append(cats, c)
			added = append(added, c)
		}
		return nil
	})
	if err != nil {
		return nil, core.Storage(err, "initialize categories")
	}
	slog.InfoContext(ctx, "Categories initialized", "workspace_id", workspace, "added", len(added))
	if len(added) > 0 {
		r.deps.committed(ctx, events.New(events.CategoryAdded, workspace))
	}
	return added, nil
}

// List returns the catalog ordered by id. A missing workspace is NotFound.
func (r *CategoryRegistry) List(ctx context.Context, workspace string) ([]core.Category, error) {
	q := r.deps.Repo.Queries()
	if _, err := getWorkspace(ctx, q, workspace); err != nil {
		return nil, err
	}
	cats, err := q.ListCategories(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list categories")
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

func (r *CategoryRegistry) Rename(ctx context.Context, workspace, owner string, id int64, newName string) (core.Category, error) {
	unlock := r.deps.Locks.Lock(workspace, lock.Categories)
	defer unlock()

	var c core.Category
	err := r.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := authorize(ctx, q, workspace, owner); err != nil {
			return err
		}
		cur, err := getCategory(ctx, q, workspace, id)
		if err != nil {
			return err
		}
		n, err := core.ValidateCategoryName(newName)
		if err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		if other, ok := findByName(cats, n); ok && other.ID != id {
			return core.Conflict("category %q already exists", other.Name)
		}
		if err := q.RenameCategory(ctx, workspace, id, n); err != nil {
			return fmt.Errorf("rename category: %w", err)
		}
		c = core.Category{ID: cur.ID, Name: n}
		return nil
	})
	if err != nil {
		return core.Category{}, core.Storage(err, "rename category")
	}
	slog.InfoContext(ctx, "Category renamed", "workspace_id", workspace, "category_id", id, "name", c.Name)
	r.deps.committed(ctx, events.New(events.CategoryRenamed, workspace).WithCategory(id))
	return c, nil
}

// Delete removes a category. Its ledger rows move to the uncategorized
// sentinel and its budget is dropped in the same transaction, so no reader
// sees a row pointing at a missing category. The last category of a
// workspace cannot be deleted.
func (r *CategoryRegistry) Delete(ctx context.Context, workspace, owner string, id int64) error {
	unlock := r.deps.Locks.Lock(workspace, lock.Categories, lock.Ledger, lock.Budgets)
	defer unlock()

	var moved int64
	err := r.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := authorize(ctx, q, workspace, owner); err != nil {
			return err
		}
		if _, err := getCategory(ctx, q, workspace, id); err != nil {
			return err
		}
		count, err := q.CountCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count <= 1 {
			return core.Conflict("cannot delete the last category of a workspace")
		}
		moved, err = q.ReassignLedgerCategory(ctx, workspace, id, core.UncategorizedID)
		if err != nil {
			return fmt.Errorf("reassign ledger: %w", err)
		}
		if err := q.DeleteBudget(ctx, workspace, id); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		if err := q.DeleteCategory(ctx, workspace, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Storage(err, "delete category")
	}
	slog.InfoContext(ctx, "Category deleted", "workspace_id", workspace, "category_id", id, "reassigned_rows", moved)
	r.deps.committed(ctx, events.New(events.CategoryDeleted, workspace).WithCategory(id))
	return nil
}

func getCategory(ctx context.Context, q *storage.Queries, workspace string, id int64) (core.Category, error) {
	c, err := q.GetCategory(ctx, workspace, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.NotFound("category %d not found", id)
	}
	if err != nil {
		return c, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}
