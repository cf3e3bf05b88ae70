package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
	"tally/internal/lock"
	"tally/internal/storage"
)

// ReceiptArchive keeps the extraction of each ingested receipt. Item order
// matches the order of the receipt's ledger rows.
type ReceiptArchive struct {
	deps Deps
}

func NewReceiptArchive(deps Deps) *ReceiptArchive {
	return &ReceiptArchive{deps: deps}
}

func (a *ReceiptArchive) Append(ctx context.Context, r core.Receipt) error {
	if r.ID == "" || r.WorkspaceID == "" {
		return core.Validation("receipt id and workspace are required")
	}
	unlock := a.deps.Locks.Lock(r.WorkspaceID, lock.Receipts)
	defer unlock()

	if err := a.deps.Repo.Queries().InsertReceipt(ctx, r); err != nil {
		return core.Storage(err, "append receipt")
	}
	return nil
}

func (a *ReceiptArchive) Get(ctx context.Context, id string) (core.Receipt, error) {
	return getReceipt(ctx, a.deps.Repo.Queries(), id)
}

// Update loads the receipt, lets mutate edit it, recomputes the total from
// the item prices and saves it.
func (a *ReceiptArchive) Update(ctx context.Context, id string, mutate func(*core.Receipt) error) (core.Receipt, error) {
	current, err := a.Get(ctx, id)
	if err != nil {
		return core.Receipt{}, err
	}
	unlock := a.deps.Locks.Lock(current.WorkspaceID, lock.Receipts)
	defer unlock()

	var updated core.Receipt
	err = a.deps.Repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		updated, err = updateReceipt(ctx, q, id, mutate)
		return err
	})
	if err != nil {
		return core.Receipt{}, core.Storage(err, "update receipt")
	}
	return updated, nil
}

func updateReceipt(ctx context.Context, q *storage.Queries, id string, mutate func(*core.Receipt) error) (core.Receipt, error) {
	r, err := getReceipt(ctx, q, id)
	if err != nil {
		return core.Receipt{}, err
	}
	if err := mutate(&r); err != nil {
		return core.Receipt{}, err
	}
	r.RecomputeTotal()
	if err := q.UpdateReceipt(ctx, r); err != nil {
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}
	return r, nil
}

func getReceipt(ctx context.Context, q *storage.Queries, id string) (core.Receipt, error) {
	r, err := q.GetReceipt(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return r, core.NotFound("receipt %s not found", id)
	}
	if err != nil {
		return r, core.Storage(err, "get receipt")
	}
	return r, nil
}
