package core

import "github.com/shopspring/decimal"

type (
	// Report is the aggregated view of a workspace ledger over one window.
	Report struct {
		WorkspaceID      string            `json:"instance_id"`
		Period           Period            `json:"period"`
		Start            string            `json:"start,omitempty"`
		End              string            `json:"end,omitempty"`
		TotalSpent       decimal.Decimal   `json:"total_spent"`
		TransactionCount int               `json:"transaction_count"`
		InvalidDateRows  int               `json:"invalid_date_rows"`
		TopItems         []ItemStat        `json:"top_items"`
		CategoryTotals   []CategoryTotal   `json:"category_totals"`
		CategoryOverages []CategoryOverage `json:"category_overages"`
		ReceiptSummary   []ReceiptSummary  `json:"receipt_summary"`
		DailySpend       []BucketTotal     `json:"daily_spend"`
		WeeklySpend      []BucketTotal     `json:"weekly_spend"`
		MonthlySpend     []BucketTotal     `json:"monthly_spend"`
	}

	ItemStat struct {
		Text  string          `json:"text"`
		Count int             `json:"count"`
		Total decimal.Decimal `json:"total"`
	}

	CategoryTotal struct {
		CategoryID int64           `json:"category_id"`
		Name       string          `json:"category_name"`
		Total      decimal.Decimal `json:"total"`
	}

	// CategoryOverage is the spend of one category on one day. Limit and
	// Exceeded are nil when the category has no budget.
	CategoryOverage struct {
		Date       string           `json:"date"`
		CategoryID int64            `json:"category_id"`
		Name       string           `json:"category_name"`
		Spent      decimal.Decimal  `json:"spent"`
		Limit      *decimal.Decimal `json:"limit"`
		Exceeded   *bool            `json:"exceeded"`
	}

	ReceiptSummary struct {
		ReceiptID string               `json:"receipt_id"`
		Date      string               `json:"date"`
		Total     decimal.Decimal      `json:"total"`
		Items     []ReceiptSummaryItem `json:"items"`
	}

	ReceiptSummaryItem struct {
		Text       string          `json:"text"`
		Amount     decimal.Decimal `json:"amount"`
		CategoryID int64           `json:"category_id"`
		Name       string          `json:"category_name"`
	}

	BucketTotal struct {
		Bucket string          `json:"bucket"`
		Total  decimal.Decimal `json:"total"`
	}

	BudgetUsage struct {
		CategoryID int64           `json:"category_id"`
		Name       string          `json:"category_name"`
		Limit      decimal.Decimal `json:"limit"`
		Spent      decimal.Decimal `json:"spent"`
		Remaining  decimal.Decimal `json:"remaining"`
	}

	WorkspaceDetail struct {
		Workspace
		TotalSpent decimal.Decimal `json:"total_spent"`
		Categories []Category      `json:"categories"`
	}
)

// ChartKind selects the projection of a report used for a chart.
type ChartKind string

const (
	ChartPie  ChartKind = "pie"
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
)

type (
	ChartSeries struct {
		Kind   ChartKind    `json:"kind"`
		Title  string       `json:"title"`
		Points []ChartPoint `json:"points"`
	}

	ChartPoint struct {
		Label string          `json:"label"`
		Value decimal.Decimal `json:"value"`
	}
)

// Series projects a report onto the points of a chart kind.
func (r *Report) Series(kind ChartKind) (ChartSeries, error) {
	s := ChartSeries{Kind: kind}
	switch kind {
	case ChartPie:
		s.Title = "Spending by category"
		for _, c := range r.CategoryTotals {
			s.Points = append(s.Points, ChartPoint{Label: c.Name, Value: c.Total})
		}
	case ChartBar:
		s.Title = "Monthly spending"
		for _, b := range r.MonthlySpend {
			s.Points = append(s.Points, ChartPoint{Label: b.Bucket, Value: b.Total})
		}
	case ChartLine:
		s.Title = "Daily spending"
		for _, b := range r.DailySpend {
			s.Points = append(s.Points, ChartPoint{Label: b.Bucket, Value: b.Total})
		}
	default:
		return ChartSeries{}, Validation("unknown chart kind %q", kind)
	}
	return s, nil
}
