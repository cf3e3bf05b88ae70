package services

import (
	"context"
	"log/slog"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/lock"
	"tally/internal/storage"
)

// CorrectionProcessor applies user fixes to an archived receipt and to the
// matching ledger rows in a single transaction.
type CorrectionProcessor struct {
	deps Deps
}

func NewCorrectionProcessor(deps Deps) *CorrectionProcessor {
	return &CorrectionProcessor{deps: deps}
}

// Correct edits receipt lines by position. Lines outside the receipt are
// ignored; the receipt total is recomputed from the item prices.
func (c *CorrectionProcessor) Correct(ctx context.Context, receiptID string, fixes []core.Fix) (core.Receipt, error) {
	current, err := getReceipt(ctx, c.deps.Repo.Queries(), receiptID)
	if err != nil {
		return core.Receipt{}, err
	}
	workspace := current.WorkspaceID

	unlock := c.deps.Locks.Lock(workspace, lock.Ledger, lock.Receipts)
	defer unlock()

	var (
		updated core.Receipt
		changed int
	)
	err = c.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		if err := checkFixCategories(ctx, q, workspace, fixes); err != nil {
			return err
		}
		var err error
		updated, err = updateReceipt(ctx, q, receiptID, func(r *core.Receipt) error {
			core.ApplyFixes(r.Items, fixes)
			return nil
		})
		if err != nil {
			return err
		}
		changed, err = applyCorrection(ctx, q, workspace, receiptID, fixes)
		return err
	})
	if err != nil {
		return core.Receipt{}, core.Storage(err, "correct receipt")
	}

	ignored := 0
	for _, f := range fixes {
		if f.Line < 0 || f.Line >= len(updated.Items) {
			ignored++
		}
	}
	slog.InfoContext(ctx, "Receipt corrected",
		"receipt_id", receiptID,
		"fixes", len(fixes),
		"ignored", ignored,
		"ledger_rows_changed", changed,
		"total", updated.Total.String())
	c.deps.committed(ctx, events.New(events.ReceiptCorrected, workspace).WithReceipt(receiptID))
	return updated, nil
}
