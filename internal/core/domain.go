package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// UncategorizedID is the reserved category id for ledger rows whose
// category was deleted or never resolved.
const (
	UncategorizedID   int64 = 0
	UncategorizedName       = "Uncategorized"

	MaxWorkspaceName = 60
)

// Period selects the report window.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodWeekly  Period = "weekly"
	PeriodCustom  Period = "custom"
)

type (
	Workspace struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
		Archived  bool      `json:"archived"`
	}

	// WorkspacePatch carries the optional fields of a workspace update.
	WorkspacePatch struct {
		Name     *string `json:"name,omitempty"`
		Archived *bool   `json:"archived,omitempty"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is one ledger row. Date is kept as written; undated parser
	// output is stored as "".
	Transaction struct {
		RowID       int64           `json:"row_id"`
		WorkspaceID string          `json:"-"`
		Date        string          `json:"date"`
		Text        string          `json:"text"`
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  int64           `json:"category_id"`
		ReceiptID   string          `json:"receipt_id"`
	}

	Budget struct {
		CategoryID int64           `json:"category_id"`
		Limit      decimal.Decimal `json:"limit"`
	}

	Item struct {
		Text       string          `json:"text"`
		Price      decimal.Decimal `json:"price"`
		CategoryID int64           `json:"category_id"`
	}

	Receipt struct {
		ID           string          `json:"receipt_id"`
		WorkspaceID  string          `json:"instance_id"`
		Vendor       string          `json:"vendor"`
		Date         string          `json:"date"`
		Total        decimal.Decimal `json:"total"`
		Items        []Item          `json:"items"`
		ImageLocator string          `json:"image"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	// Fix edits one receipt line, addressed by its 0-based position.
	Fix struct {
		Line       int              `json:"line"`
		Text       *string          `json:"text,omitempty"`
		Price      *decimal.Decimal `json:"price,omitempty"`
		CategoryID *int64           `json:"category_id,omitempty"`
	}
)

// NormalizeName trims surrounding whitespace from a category or workspace name.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

// ValidateWorkspaceName returns the trimmed name or a validation error.
func ValidateWorkspaceName(name string) (string, error) {
	n := NormalizeName(name)
	if n == "" {
		return "", Validation("workspace name is required")
	}
	if utf8.RuneCountInString(n) > MaxWorkspaceName {
		return "", Validation("workspace name too long (max %d characters)", MaxWorkspaceName)
	}
	return n, nil
}

// ValidateCategoryName returns the trimmed name or a validation error.
func ValidateCategoryName(name string) (string, error) {
	n := NormalizeName(name)
	if n == "" {
		return "", Validation("category name is required")
	}
	return n, nil
}

// Validate checks a row before it is appended. Category existence is
// checked by the store. Undated rows only come from receipt ingestion.
func (t Transaction) Validate() error {
	if _, err := ParseDate(t.Date); err != nil {
		return Validation("invalid date %q", t.Date)
	}
	if strings.TrimSpace(t.Text) == "" {
		return Validation("transaction text is required")
	}
	if t.CategoryID < 0 {
		return Validation("invalid category id %d", t.CategoryID)
	}
	return nil
}

// Empty reports whether the fix changes nothing.
func (f Fix) Empty() bool {
	return f.Text == nil && f.Price == nil && f.CategoryID == nil
}

// Apply copies the set fields of f onto the given line.
func (f Fix) Apply(text *string, price *decimal.Decimal, categoryID *int64) {
	if f.Text != nil {
		*text = *f.Text
	}
	if f.Price != nil {
		*price = *f.Price
	}
	if f.CategoryID != nil {
		*categoryID = *f.CategoryID
	}
}

// ApplyFixes applies fixes to items in place. Lines outside [0, len(items))
// are skipped.
func ApplyFixes(items []Item, fixes []Fix) {
	for _, f := range fixes {
		if f.Line < 0 || f.Line >= len(items) {
			continue
		}
		it := &items[f.Line]
		f.Apply(&it.Text, &it.Price, &it.CategoryID)
	}
}

// RecomputeTotal sets the receipt total to the rounded sum of its prices.
func (r *Receipt) RecomputeTotal() {
	r.Total = Round2(SumPrices(r.Items))
}

// CategoryNames indexes categories by id.
func CategoryNames(cats []Category) map[int64]string {
	m := make(map[int64]string, len(cats))
	for _, c := range cats {
		m[c.ID] = c.Name
	}
	return m
}

// NameFor resolves a category id against names, falling back to
// UncategorizedName for the sentinel and unknown ids.
func NameFor(names map[int64]string, id int64) string {
	if id == UncategorizedID {
		return UncategorizedName
	}
	if n, ok := names[id]; ok {
		return n
	}
	return UncategorizedName
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

type (
	// LedgerQuery filters a ledger page. Empty fields match everything.
	LedgerQuery struct {
		Date       string
		CategoryID *int64
		Offset     int
		Limit      int
	}

	LedgerEntry struct {
		Transaction
		CategoryName string `json:"category_name"`
	}

	LedgerPage struct {
		Rows   []LedgerEntry `json:"transactions"`
		Total  int64         `json:"total"`
		Offset int           `json:"offset"`
		Limit  int           `json:"limit"`
	}
)

// Normalize applies the default page size and caps the limit.
func (lq LedgerQuery) Normalize() (LedgerQuery, error) {
	if lq.Offset < 0 {
		return lq, Validation("offset must not be negative")
	}
	switch {
	case lq.Limit < 0:
		return lq, Validation("limit must not be negative")
	case lq.Limit == 0:
		lq.Limit = DefaultPageSize
	case lq.Limit > MaxPageSize:
		lq.Limit = MaxPageSize
	}
	lq.Date = strings.TrimSpace(lq.Date)
	return lq, nil
}
