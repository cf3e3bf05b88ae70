package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tally/internal/core"
)

const insertReceipt = `
INSERT INTO receipts (id, workspace_id, vendor, date, total, items, image_locator, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertReceipt(ctx context.Context, r core.Receipt) error {
	items, err := json.Marshal(itemsOrEmpty(r.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = q.db.ExecContext(ctx, insertReceipt,
		r.ID, r.WorkspaceID, r.Vendor, r.Date, r.Total.String(), string(items), r.ImageLocator,
		formatTime(created), formatTime(time.Now()))
	return err
}

const getReceipt = `
SELECT id, workspace_id, vendor, date, total, items, image_locator, created_at
FROM receipts WHERE id = ?`

func (q *Queries) GetReceipt(ctx context.Context, id string) (core.Receipt, error) {
	var (
		r       core.Receipt
		items   string
		created string
	)
	err := q.db.QueryRowContext(ctx, getReceipt, id).Scan(
		&r.ID, &r.WorkspaceID, &r.Vendor, &r.Date, &r.Total, &items, &r.ImageLocator, &created)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(items), &r.Items); err != nil {
		return r, fmt.Errorf("decode items of receipt %s: %w", id, err)
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}

const updateReceipt = `
UPDATE receipts SET vendor = ?, date = ?, total = ?, items = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateReceipt(ctx context.Context, r core.Receipt) error {
	items, err := json.Marshal(itemsOrEmpty(r.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = q.db.ExecContext(ctx, updateReceipt, r.Vendor, r.Date, r.Total.String(), string(items), formatTime(time.Now()), r.ID)
	return err
}

func itemsOrEmpty(items []core.Item) []core.Item {
	if items == nil {
		return []core.Item{}
	}
	return items
}
