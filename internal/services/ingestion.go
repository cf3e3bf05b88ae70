package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

const unknownItemText = "Unknown"

// IngestResult is what an ingestion returns to the caller.
type IngestResult struct {
	ReceiptID string      `json:"receipt_id"`
	Items     []core.Item `json:"items"`
}

// IngestionPipeline turns a receipt image into an archived receipt and one
// ledger row per item.
type IngestionPipeline struct {
	deps   Deps
	images ImageStore
	parser Parser
}

func NewIngestionPipeline(deps Deps, images ImageStore, parser Parser) *IngestionPipeline {
	return &IngestionPipeline{deps: deps, images: images, parser: parser}
}

// Ingest parses image and records it in workspace. The parser runs without
// any workspace lock held; category reconciliation, archiving and the ledger
// append then commit in one transaction.
func (p *IngestionPipeline) Ingest(ctx context.Context, workspace, owner string, image []byte) (IngestResult, error) {
	q := p.deps.Repo.Queries()
	if _, err := authorize(ctx, q, workspace, owner); err != nil {
		return IngestResult{}, err
	}
	if len(image) == 0 {
		return IngestResult{}, core.Validation("receipt image is empty")
	}

	receiptID, locator, err := p.images.Save(ctx, workspace, image)
	if err != nil {
		return IngestResult{}, core.Storage(err, "save receipt image")
	}

	extraction, err := p.extract(ctx, workspace, image)
	if err != nil {
		p.discardImage(ctx, locator)
		return IngestResult{}, err
	}

	unlock := p.deps.Locks.Lock(workspace, lock.Categories, lock.Ledger, lock.Receipts)
	defer unlock()

	var items []core.Item
	err = p.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := getWorkspace(ctx, q, workspace); err != nil {
			return err
		}
		cats, err := q.ListCategories(ctx, workspace)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		var known map[int64]string
		items, known, err = reconcile(ctx, q, workspace, cats, extraction)
		if err != nil {
			return err
		}

		receipt := core.Receipt{
			ID:           receiptID,
			WorkspaceID:  workspace,
			Vendor:       extraction.Vendor,
			Date:         extraction.Date,
			Items:        items,
			ImageLocator: locator,
		}
		if extraction.Total != nil {
			receipt.Total = *extraction.Total
		} else {
			receipt.RecomputeTotal()
		}
		if err := q.InsertReceipt(ctx, receipt); err != nil {
			return fmt.Errorf("archive receipt: %w", err)
		}

		date := extraction.Date
		if !core.ValidLedgerDate(date) {
			slog.WarnContext(ctx, "Parser returned an unreadable date, storing row undated",
				"receipt_id", receiptID, "date", date)
			date = ""
		}
		rows := make([]core.Transaction, len(items))
		for i, it := range items {
			rows[i] = core.Transaction{
				Date:       date,
				Text:       it.Text,
				Amount:     it.Price,
				CategoryID: it.CategoryID,
				ReceiptID:  receiptID,
			}
		}
		_, err = appendRows(ctx, q, workspace, rows, known)
		return err
	})
	if err != nil {
		p.discardImage(ctx, locator)
		return IngestResult{}, core.Storage(err, "ingest receipt")
	}

	slog.InfoContext(ctx, "Receipt ingested",
		"workspace_id", workspace,
		"receipt_id", receiptID,
		"items", len(items),
		"vendor", extraction.Vendor)
	p.deps.committed(ctx, events.New(events.ReceiptIngested, workspace).WithReceipt(receiptID))
	return IngestResult{ReceiptID: receiptID, Items: items}, nil
}

// extract calls the parser, retrying once when it finds no items.
func (p *IngestionPipeline) extract(ctx context.Context, workspace string, image []byte) (core.Extraction, error) {
	catalog, err := p.deps.Repo.Queries().ListCategories(ctx, workspace)
	if err != nil {
		return core.Extraction{}, core.Storage(err, "list categories")
	}
	for attempt := 1; attempt <= 2; attempt++ {
		x, err := p.parser.Parse(ctx, image, catalog)
		if err != nil {
			return core.Extraction{}, core.Upstream(err, "parse receipt")
		}
		if len(x.Items) > 0 {
			return x, nil
		}
		slog.WarnContext(ctx, "Parser returned no items", "workspace_id", workspace, "attempt", attempt)
	}
	return core.Extraction{}, core.Upstream(nil, "parser found no items on the receipt")
}

// reconcile resolves every item category exactly once. Proposed names are
// allocated against the catalog (one id per case-insensitive name); ids
// missing from the catalog fall back to uncategorized. It also returns the
// catalog as it stands afterwards.
func reconcile(ctx context.Context, q *storage.Queries, workspace string, cats []core.Category, x core.Extraction) ([]core.Item, map[int64]string, error) {
	known := core.CategoryNames(cats)
	byName := make(map[string]int64)
	for _, name := range x.UnresolvedNames() {
		c, created, err := allocate(ctx, q, workspace, cats, name)
		if err != nil {
			return nil, nil, err
		}
		if created {
			cats = append(cats, c)
			known[c.ID] = c.Name
		}
		byName[strings.ToLower(name)] = c.ID
	}

	items := make([]core.Item, 0, len(x.Items))
	for _, extracted := range x.Items {
		it := core.Item{Text: extracted.Text, Price: extracted.Price}
		if it.Text == "" {
			it.Text = unknownItemText
		}
		if name, ok := extracted.Category.Name(); ok {
			it.CategoryID = byName[strings.ToLower(name)]
		} else {
			id, _ := extracted.Category.ID()
			if _, ok := known[id]; !ok && id != core.UncategorizedID {
				slog.WarnContext(ctx, "Parser returned an unknown category id, item left uncategorized",
					"workspace_id", workspace, "category_id", id, "text", it.Text)
				id = core.UncategorizedID
			}
			it.CategoryID = id
		}
		items = append(items, it)
	}
	return items, known, nil
}

func (p *IngestionPipeline) discardImage(ctx context.Context, locator string) {
	if err := p.images.Delete(ctx, locator); err != nil {
		slog.WarnContext(ctx, "Failed to remove receipt image", "locator", locator, "error", err)
	}
}
