package sheets

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func TestRow(t *testing.T) {
	e := core.LedgerEntry{
		Transaction: core.Transaction{
			RowID:     7,
			Date:      "2024-01-02",
			Text:      "Milk",
			Amount:    decimal.RequireFromString("1.5"),
			ReceiptID: "r1",
		},
		CategoryName: "Food",
	}
	want := []string{"7", "2024-01-02", "Milk", "1.50", "Food", "r1"}
	if got := Row(e); !reflect.DeepEqual(got, want) {
		t.Fatalf("Row = %v, want %v", got, want)
	}
	if len(Header) != len(want) {
		t.Fatalf("header has %d columns, rows have %d", len(Header), len(want))
	}
}
