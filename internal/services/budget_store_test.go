package services

import (
	"context"
	"testing"

	"tally/internal/core"
)

func TestBudgetUpsertReplaces(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")

	for _, limit := range []string{"100", "150.25"} {
		if err := e.budgets.Upsert(ctx, ws, food, dec(limit)); err != nil {
			t.Fatalf("Upsert(%s): %v", limit, err)
		}
	}
	budgets, err := e.budgets.Get(ctx, ws)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(budgets) != 1 || !budgets[0].Limit.Equal(dec("150.25")) {
		t.Fatalf("budgets = %+v", budgets)
	}
}

func TestBudgetUpsertValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")

	assertKind(t, e.budgets.Upsert(ctx, ws, food, dec("0")), core.KindValidation)
	assertKind(t, e.budgets.Upsert(ctx, ws, food, dec("-5")), core.KindValidation)
	assertKind(t, e.budgets.Upsert(ctx, ws, 7, dec("10")), core.KindNotFound)
	assertKind(t, e.budgets.Upsert(ctx, "nope", food, dec("10")), core.KindNotFound)
}

func TestBudgetUtilisation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")
	fuel := e.category(t, ws, "Fuel")
	e.appendRows(t, ws,
		row("2024-01-01", "Milk", "20.10", food, "r1"),
		row("2024-02-01", "Bread", "30", food, "r2"),
		row("2024-02-01", "Diesel", "40", fuel, "r3"),
	)
	if err := e.budgets.Upsert(ctx, ws, food, dec("100")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	usage, err := e.budgets.Utilisation(ctx, ws)
	if err != nil {
		t.Fatalf("Utilisation: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("usage = %+v", usage)
	}
	u := usage[0]
	if u.Name != "Food" || !u.Spent.Equal(dec("50.10")) || !u.Remaining.Equal(dec("49.90")) {
		t.Fatalf("usage = %+v", u)
	}
}
