package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// BudgetStore keeps one spending limit per workspace category.
type BudgetStore struct {
	deps Deps
}

func NewBudgetStore(deps Deps) *BudgetStore {
	return &BudgetStore{deps: deps}
}

// Upsert sets the limit of category, replacing any previous one.
func (b *BudgetStore) Upsert(ctx context.Context, workspace string, category int64, limit decimal.Decimal) error {
	if !limit.IsPositive() {
		return core.Validation("budget limit must be positive, got %s", limit)
	}

	unlock := b.deps.Locks.Lock(workspace, lock.Categories, lock.Budgets)
	defer unlock()

	err := b.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := getWorkspace(ctx, q, workspace); err != nil {
			return err
		}
		if _, err := getCategory(ctx, q, workspace, category); err != nil {
			return err
		}
		if err := q.UpsertBudget(ctx, workspace, core.Budget{CategoryID: category, Limit: limit}); err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Storage(err, "upsert budget")
	}
	slog.InfoContext(ctx, "Budget saved", "workspace_id", workspace, "category_id", category, "limit", limit.String())
	b.deps.committed(ctx, events.New(events.BudgetUpserted, workspace).WithCategory(category))
	return nil
}

// Get returns the workspace budgets ordered by category id.
func (b *BudgetStore) Get(ctx context.Context, workspace string) ([]core.Budget, error) {
	q := b.deps.Repo.Queries()
	if _, err := getWorkspace(ctx, q, workspace); err != nil {
		return nil, err
	}
	budgets, err := q.ListBudgets(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list budgets")
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	return budgets, nil
}

// Utilisation reports, per budget, how much of the limit the whole ledger
// has used.
func (b *BudgetStore) Utilisation(ctx context.Context, workspace string) ([]core.BudgetUsage, error) {
	q := b.deps.Repo.Queries()
	if _, err := getWorkspace(ctx, q, workspace); err != nil {
		return nil, err
	}
	budgets, err := q.ListBudgets(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list budgets")
	}
	cats, err := q.ListCategories(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list categories")
	}
	rows, err := q.ListLedger(ctx, workspace)
	if err != nil {
		return nil, core.Storage(err, "list ledger")
	}

	spent := make(map[int64]decimal.Decimal)
	for _, r := range rows {
		spent[r.CategoryID] = spent[r.CategoryID].Add(r.Amount)
	}
	names := core.CategoryNames(cats)

	usage := make([]core.BudgetUsage, 0, len(budgets))
	for _, bud := range budgets {
		s := spent[bud.CategoryID]
		usage = append(usage, core.BudgetUsage{
			CategoryID: bud.CategoryID,
			Name:       core.NameFor(names, bud.CategoryID),
			Limit:      bud.Limit,
			Spent:      core.Round2(s),
			Remaining:  core.Round2(bud.Limit.Sub(s)),
		})
	}
	return usage, nil
}
