package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tally/internal/core"
	"tally/internal/events"
)

func TestIngest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")
	food := e.category(t, ws, "Food")

	x := extraction("2024-03-01",
		withID("Milk", "1.20", food),
		named("Chips", "2.50", "snacks"),
		named("Crisps", "1.00", "SNACKS"),
		withID("", "0.30", 77),
	)
	parser := &fakeParser{results: []core.Extraction{x}}
	images := &fakeImages{}
	p := NewIngestionPipeline(e.deps, images, parser)

	res, err := p.Ingest(ctx, ws, "alice", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(res.Items) != 4 {
		t.Fatalf("items = %+v", res.Items)
	}
	snacks := res.Items[1].CategoryID
	if snacks != 2 || res.Items[2].CategoryID != snacks {
		t.Fatalf("snack categories = %d, %d", snacks, res.Items[2].CategoryID)
	}
	if res.Items[3].Text != "Unknown" || res.Items[3].CategoryID != core.UncategorizedID {
		t.Fatalf("fallback item = %+v", res.Items[3])
	}

	receipt, err := e.archive.Get(ctx, res.ReceiptID)
	if err != nil {
		t.Fatalf("Get receipt: %v", err)
	}
	if !receipt.Total.Equal(dec("5")) || receipt.WorkspaceID != ws || receipt.ImageLocator == "" {
		t.Fatalf("receipt = %+v", receipt)
	}
	rows, _ := e.ledger.All(ctx, ws)
	if len(rows) != 4 || rows[0].ReceiptID != res.ReceiptID || rows[0].Date != "2024-03-01" {
		t.Fatalf("ledger = %+v", rows)
	}

	types := e.recorder.Types()
	if types[len(types)-1] != events.ReceiptIngested {
		t.Fatalf("events = %v", types)
	}
}

func TestIngestKeepsParserTotalAndBadDate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")

	x := extraction("yesterday", named("Milk", "1", "Food"))
	total := dec("1.50")
	x.Total = &total
	p := NewIngestionPipeline(e.deps, &fakeImages{}, &fakeParser{results: []core.Extraction{x}})

	res, err := p.Ingest(ctx, ws, "alice", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	receipt, _ := e.archive.Get(ctx, res.ReceiptID)
	if !receipt.Total.Equal(total) || receipt.Date != "yesterday" {
		t.Fatalf("receipt = %+v", receipt)
	}
	rows, _ := e.ledger.All(ctx, ws)
	if rows[0].Date != "" {
		t.Fatalf("ledger date = %q, want undated", rows[0].Date)
	}
}

func TestIngestRetriesEmptyExtraction(t *testing.T) {
	e := newEnv(t)
	ws := e.workspace(t, "alice")
	parser := &fakeParser{results: []core.Extraction{{}, extraction("2024-01-01", named("Milk", "1", "Food"))}}
	p := NewIngestionPipeline(e.deps, &fakeImages{}, parser)

	if _, err := p.Ingest(context.Background(), ws, "alice", []byte("jpeg")); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if parser.calls != 2 {
		t.Fatalf("parser calls = %d, want 2", parser.calls)
	}
}

func TestIngestFailuresLeaveNoTrace(t *testing.T) {
	cases := []struct {
		name   string
		parser *fakeParser
		owner  string
		image  []byte
		kind   core.Kind
		calls  int
	}{
		{"parser error", &fakeParser{err: errors.New("timeout")}, "alice", []byte("jpeg"), core.KindUpstreamFailure, 1},
		{"nothing found twice", &fakeParser{}, "alice", []byte("jpeg"), core.KindUpstreamFailure, 2},
		{"wrong owner", &fakeParser{}, "bob", []byte("jpeg"), core.KindForbidden, 0},
		{"empty image", &fakeParser{}, "alice", nil, core.KindValidation, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			ws := e.workspace(t, "alice")
			images := &fakeImages{}
			p := NewIngestionPipeline(e.deps, images, tc.parser)

			_, err := p.Ingest(ctx, ws, tc.owner, tc.image)
			assertKind(t, err, tc.kind)
			if tc.parser.calls != tc.calls {
				t.Fatalf("parser calls = %d, want %d", tc.parser.calls, tc.calls)
			}
			if len(images.saved) != 0 {
				t.Fatalf("images left behind: %d", len(images.saved))
			}
			rows, _ := e.ledger.All(ctx, ws)
			cats, _ := e.categories.List(ctx, ws)
			if len(rows) != 0 || len(cats) != 0 {
				t.Fatalf("failed ingest mutated state: %d rows, %d categories", len(rows), len(cats))
			}
		})
	}
}

func TestConcurrentIngestSharesNewCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.workspace(t, "alice")

	release := make(chan struct{})
	parser := &fakeParser{
		results: []core.Extraction{extraction("2024-01-01", named("Chips", "1.50", "Snacks"))},
		block:   release,
	}
	p := NewIngestionPipeline(e.deps, &fakeImages{}, parser)

	var wg sync.WaitGroup
	results := make([]IngestResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Ingest(ctx, ws, "alice", []byte("jpeg"))
		}(i)
	}
	close(release)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	cats, _ := e.categories.List(ctx, ws)
	if len(cats) != 1 || cats[0].Name != "Snacks" {
		t.Fatalf("categories = %+v", cats)
	}
	for _, r := range results {
		if r.Items[0].CategoryID != cats[0].ID {
			t.Fatalf("receipt %s uses category %d, want %d", r.ReceiptID, r.Items[0].CategoryID, cats[0].ID)
		}
	}
}
