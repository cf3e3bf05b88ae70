package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ItemCategory is the category a parser assigned to an item: either an id
// from the catalog it was shown, or a name for a category that does not
// exist yet. The zero value is Resolved(UncategorizedID).
type ItemCategory struct {
	id       int64
	name     string
	resolved bool
}

func Resolved(id int64) ItemCategory {
	return ItemCategory{id: id, resolved: true}
}

func Unresolved(name string) ItemCategory {
	return ItemCategory{name: NormalizeName(name)}
}

// ID returns the category id when the category is resolved.
func (c ItemCategory) ID() (int64, bool) {
	if c.resolved || c.name == "" {
		return c.id, true
	}
	return 0, false
}

// Name returns the proposed name when the category is unresolved.
func (c ItemCategory) Name() (string, bool) {
	if c.resolved || c.name == "" {
		return "", false
	}
	return c.name, true
}

func (c ItemCategory) String() string {
	if n, ok := c.Name(); ok {
		return "unresolved(" + n + ")"
	}
	return "resolved"
}

// ExtractedItem is one receipt line as returned by the parser.
type ExtractedItem struct {
	Text     string
	Price    decimal.Decimal
	Category ItemCategory
}

type extractedItemJSON struct {
	Text         string          `json:"text"`
	Price        json.RawMessage `json:"price,omitempty"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	CategoryName *string         `json:"category_name,omitempty"`
}

// UnmarshalJSON accepts {text, price, category_id} or {text, price,
// category_name}. A non-zero id wins over a name. Prices may be numbers or
// strings with either decimal separator; a missing price is zero.
func (e *ExtractedItem) UnmarshalJSON(b []byte) error {
	var raw extractedItemJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Text = strings.TrimSpace(raw.Text)
	e.Price = decimal.Zero
	if len(raw.Price) > 0 && string(raw.Price) != "null" {
		p, err := ParseAmount(AmountText(raw.Price))
		if err != nil {
			return fmt.Errorf("item %q price %s: %w", e.Text, raw.Price, err)
		}
		e.Price = p
	}
	switch {
	case raw.CategoryID != nil && *raw.CategoryID != 0:
		e.Category = Resolved(*raw.CategoryID)
	case raw.CategoryName != nil && NormalizeName(*raw.CategoryName) != "":
		e.Category = Unresolved(*raw.CategoryName)
	default:
		e.Category = Resolved(UncategorizedID)
	}
	return nil
}

func (e ExtractedItem) MarshalJSON() ([]byte, error) {
	price, err := json.Marshal(e.Price)
	if err != nil {
		return nil, err
	}
	raw := extractedItemJSON{Text: e.Text, Price: price}
	if n, ok := e.Category.Name(); ok {
		raw.CategoryName = &n
	} else {
		id, _ := e.Category.ID()
		raw.CategoryID = &id
	}
	return json.Marshal(raw)
}

// Extraction is the structured result of parsing a receipt image.
type Extraction struct {
	Items  []ExtractedItem  `json:"items"`
	Vendor string           `json:"vendor"`
	Date   string           `json:"date"`
	Total  *decimal.Decimal `json:"total,omitempty"`
}

// UnresolvedNames returns the distinct proposed names in first-seen order,
// compared case-insensitively.
func (x Extraction) UnresolvedNames() []string {
	var out []string
	for _, it := range x.Items {
		n, ok := it.Category.Name()
		if !ok {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, n) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}
