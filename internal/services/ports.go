package services

import (
	"context"

	"tally/internal/core"
)

// Parser extracts line items from a receipt image. catalog is the
// workspace's current categories, offered so the parser can match items to
// existing ids.
type Parser interface {
	Parse(ctx context.Context, image []byte, catalog []core.Category) (core.Extraction, error)
}

// ImageStore persists uploaded receipt images.
type ImageStore interface {
	// Save stores image and returns a new receipt id with the image locator.
	Save(ctx context.Context, workspace string, image []byte) (receiptID, locator string, err error)
	Delete(ctx context.Context, locator string) error
}
