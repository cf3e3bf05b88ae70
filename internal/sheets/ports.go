package sheets

import (
	"context"
	"strconv"

	"tally/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps a read-only copy of each workspace ledger outside
	// the database.
	LedgerMirror interface {
		// Mirror replaces the copy of workspace with rows.
		Mirror(ctx context.Context, workspace string, rows []core.LedgerEntry) error
		// Remove drops the copy of workspace. Removing a missing copy is not
		// an error.
		Remove(ctx context.Context, workspace string) error
	}
)

// Header is the first row of every mirrored ledger.
var Header = []string{"Row", "Date", "Description", "Amount", "Category", "Receipt"}

// Row renders one ledger entry in Header order.
func Row(e core.LedgerEntry) []string {
	return []string{
		strconv.FormatInt(e.RowID, 10),
		e.Date,
		e.Text,
		e.Amount.StringFixed(core.CurrencyPlaces),
		e.CategoryName,
		e.ReceiptID,
	}
}
