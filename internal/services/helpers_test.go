package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

type env struct {
	deps       Deps
	recorder   *events.Recorder
	workspaces *WorkspaceService
	categories *CategoryRegistry
	budgets    *BudgetStore
	ledger     *LedgerStore
	archive    *ReceiptArchive
	reports    *ReportEngine
	corrector  *CorrectionProcessor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	rec := &events.Recorder{}
	deps := Deps{Repo: repo, Locks: lock.NewManager(), Publisher: rec}
	engine := NewReportEngine(deps, cache.NewLRUCache[*core.Report](16, time.Minute))
	deps.Reports = engine

	return &env{
		deps:       deps,
		recorder:   rec,
		workspaces: NewWorkspaceService(deps),
		categories: NewCategoryRegistry(deps),
		budgets:    NewBudgetStore(deps),
		ledger:     NewLedgerStore(deps),
		archive:    NewReceiptArchive(deps),
		reports:    engine,
		corrector:  NewCorrectionProcessor(deps),
	}
}

func (e *env) workspace(t *testing.T, owner string) string {
	t.Helper()
	w, err := e.workspaces.Create(context.Background(), owner, "Home")
	if err != nil {
		t.Fatalf("Create workspace: %v", err)
	}
	return w.ID
}

func (e *env) category(t *testing.T, ws, name string) int64 {
	t.Helper()
	id, err := e.categories.Allocate(context.Background(), ws, name)
	if err != nil {
		t.Fatalf("Allocate(%q): %v", name, err)
	}
	return id
}

func (e *env) appendRows(t *testing.T, ws string, rows ...core.Transaction) {
	t.Helper()
	if _, err := e.ledger.Append(context.Background(), ws, rows); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

// storeRows writes rows the way ingestion does, skipping Append's row
// checks. Used for undated rows.
func (e *env) storeRows(t *testing.T, ws string, rows ...core.Transaction) {
	t.Helper()
	ctx := context.Background()
	err := e.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		cats, err := q.ListCategories(ctx, ws)
		if err != nil {
			return err
		}
		_, err = appendRows(ctx, q, ws, rows, core.CategoryNames(cats))
		return err
	})
	if err != nil {
		t.Fatalf("store rows: %v", err)
	}
}

func row(date, text, amount string, cat int64, receipt string) core.Transaction {
	return core.Transaction{Date: date, Text: text, Amount: dec(amount), CategoryID: cat, ReceiptID: receipt}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertKind(t *testing.T, err error, want core.Kind) {
	t.Helper()
	if got := core.KindOf(err); got != want {
		t.Fatalf("error kind = %q (%v), want %q", got, err, want)
	}
}

// fakeParser returns queued extractions in order, repeating the last one.
type fakeParser struct {
	mu      sync.Mutex
	results []core.Extraction
	err     error
	calls   int
	block   chan struct{}
}

func (p *fakeParser) Parse(ctx context.Context, _ []byte, _ []core.Category) (core.Extraction, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return core.Extraction{}, p.err
	}
	if len(p.results) == 0 {
		return core.Extraction{}, nil
	}
	x := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return x, nil
}

type fakeImages struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	err     error
}

func (f *fakeImages) Save(_ context.Context, _ string, image []byte) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	id := uuid.NewString()
	loc := "mem://" + id
	f.saved[loc] = image
	return id, loc, nil
}

func (f *fakeImages) Delete(_ context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.saved[locator]; !ok {
		return errors.New("no such image")
	}
	delete(f.saved, locator)
	f.deleted = append(f.deleted, locator)
	return nil
}

func extraction(date string, items ...core.ExtractedItem) core.Extraction {
	return core.Extraction{Vendor: "Shop", Date: date, Items: items}
}

func named(text, price, category string) core.ExtractedItem {
	return core.ExtractedItem{Text: text, Price: dec(price), Category: core.Unresolved(category)}
}

func withID(text, price string, id int64) core.ExtractedItem {
	return core.ExtractedItem{Text: text, Price: dec(price), Category: core.Resolved(id)}
}
