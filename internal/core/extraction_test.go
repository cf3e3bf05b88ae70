package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractionUnmarshal(t *testing.T) {
	raw := `{
		"items": [
			{"text": "Milk", "price": 2.49, "category_id": 1},
			{"text": "Yoga Mat", "price": "15.99", "category_name": " Fitness "},
			{"text": "Mat cleaner", "price": "3,50", "category_name": "fitness"},
			{"text": "Both", "price": 1, "category_id": 4, "category_name": "Ignored"},
			{"text": "Neither", "price": 1}
		],
		"vendor": "Shop",
		"date": "2024-01-02",
		"total": 18.48
	}`
	var x Extraction
	if err := json.Unmarshal([]byte(raw), &x); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(x.Items) != 5 {
		t.Fatalf("items = %d", len(x.Items))
	}
	if id, ok := x.Items[0].Category.ID(); !ok || id != 1 {
		t.Fatalf("item 0 category = %v", x.Items[0].Category)
	}
	if n, ok := x.Items[1].Category.Name(); !ok || n != "Fitness" {
		t.Fatalf("item 1 category = %q %v", n, ok)
	}
	if id, ok := x.Items[3].Category.ID(); !ok || id != 4 {
		t.Fatalf("id should win over name, got %v", x.Items[3].Category)
	}
	if id, ok := x.Items[4].Category.ID(); !ok || id != UncategorizedID {
		t.Fatalf("missing category should be uncategorized")
	}
	if !x.Items[1].Price.Equal(decimal.RequireFromString("15.99")) || !x.Items[2].Price.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("prices = %s %s", x.Items[1].Price, x.Items[2].Price)
	}
	if x.Total == nil || x.Total.String() != "18.48" {
		t.Fatalf("total = %v", x.Total)
	}

	names := x.UnresolvedNames()
	if len(names) != 1 || names[0] != "Fitness" {
		t.Fatalf("UnresolvedNames = %v", names)
	}
}

func TestExtractedItemRejectsBadPrice(t *testing.T) {
	var it ExtractedItem
	err := json.Unmarshal([]byte(`{"text": "Milk", "price": "two euros"}`), &it)
	if err == nil || !strings.Contains(err.Error(), "Milk") {
		t.Fatalf("error = %v", err)
	}
	if err := json.Unmarshal([]byte(`{"text": "Bag"}`), &it); err != nil || !it.Price.IsZero() {
		t.Fatalf("missing price = %s, %v", it.Price, err)
	}
}

func TestReportSeries(t *testing.T) {
	r := &Report{
		CategoryTotals: []CategoryTotal{{CategoryID: 1, Name: "Food"}},
		MonthlySpend:   []BucketTotal{{Bucket: "2024-01"}, {Bucket: "2024-02"}},
		DailySpend:     []BucketTotal{{Bucket: "2024-01-01"}},
	}
	cases := map[ChartKind]int{ChartPie: 1, ChartBar: 2, ChartLine: 1}
	for kind, n := range cases {
		s, err := r.Series(kind)
		if err != nil || len(s.Points) != n {
			t.Fatalf("Series(%s) = %d points, %v", kind, len(s.Points), err)
		}
	}
	if _, err := r.Series("radar"); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
}
