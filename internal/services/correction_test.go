package services

import (
	"context"
	"testing"

	"tally/internal/core"
	"tally/internal/events"
)

func ingestFixture(t *testing.T, e *env, ws string, x core.Extraction) string {
	t.Helper()
	p := NewIngestionPipeline(e.deps, &fakeImages{}, &fakeParser{results: []core.Extraction{x}})
	res, err := p.Ingest(context.Background(), ws, "alice", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return res.ReceiptID
}

func TestCorrectRecomputesTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")
	fuel := e.category(t, ws, "Fuel")
	id := ingestFixture(t, e, ws, extraction("2024-01-01", withID("Milk", "2", food), withID("Bread", "3", food)))

	price := dec("5")
	text := "Whole milk"
	r, err := e.corrector.Correct(ctx, id, []core.Fix{
		{Line: 0, Text: &text, Price: &price, CategoryID: &fuel},
		{Line: 9, Price: &price},
	})
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if !r.Total.Equal(dec("8")) || r.Items[0].Text != "Whole milk" || r.Items[1].Text != "Bread" {
		t.Fatalf("receipt = %+v", r)
	}

	stored, _ := e.archive.Get(ctx, id)
	if !stored.Total.Equal(dec("8")) {
		t.Fatalf("stored total = %s", stored.Total)
	}
	rows, _ := e.ledger.All(ctx, ws)
	if rows[0].Text != "Whole milk" || !rows[0].Amount.Equal(price) || rows[0].CategoryID != fuel {
		t.Fatalf("ledger row = %+v", rows[0])
	}

	types := e.recorder.Types()
	if types[len(types)-1] != events.ReceiptCorrected {
		t.Fatalf("events = %v", types)
	}
}

func TestCorrectIsAtomic(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")
	id := ingestFixture(t, e, ws, extraction("2024-01-01", withID("Milk", "2", food)))

	price := dec("7")
	missing := int64(99)
	_, err := e.corrector.Correct(ctx, id, []core.Fix{
		{Line: 0, Price: &price},
		{Line: 0, CategoryID: &missing},
	})
	assertKind(t, err, core.KindValidation)

	r, _ := e.archive.Get(ctx, id)
	rows, _ := e.ledger.All(ctx, ws)
	if !r.Items[0].Price.Equal(dec("2")) || !rows[0].Amount.Equal(dec("2")) {
		t.Fatalf("failed correction left changes: %+v %+v", r.Items[0], rows[0])
	}

	_, err = e.corrector.Correct(ctx, "nope", nil)
	assertKind(t, err, core.KindNotFound)
}

func TestArchiveUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	r := core.Receipt{
		ID:          "r1",
		WorkspaceID: ws,
		Vendor:      "Shop",
		Date:        "2024-01-01",
		Items:       []core.Item{{Text: "Milk", Price: dec("1")}, {Text: "Eggs", Price: dec("2")}},
		Total:       dec("99"),
	}
	if err := e.archive.Append(ctx, r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := e.archive.Update(ctx, "r1", func(r *core.Receipt) error {
		r.Items = r.Items[:1]
		return nil
	})
	if err != nil || !got.Total.Equal(dec("1")) || len(got.Items) != 1 {
		t.Fatalf("Update = %+v, %v", got, err)
	}
	assertKind(t, e.archive.Append(ctx, core.Receipt{ID: "r2"}), core.KindValidation)
}
