package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

const topItemsLimit = 5

// datedRow is a ledger row whose date parsed.
type datedRow struct {
	core.Transaction
	at time.Time
}

// window selects the rows a report covers.
type window struct {
	period core.Period
	start  *time.Time
	end    *time.Time
}

// parseWindow validates the request bounds. Bounds are only used by the
// custom period; a custom request missing either bound covers the full
// history.
func parseWindow(period core.Period, start, end string) (window, error) {
	if period == "" {
		period = core.PeriodMonthly
	}
	w := window{period: period}
	if period != core.PeriodCustom {
		return w, nil
	}
	if start != "" {
		t, err := core.ParseDate(start)
		if err != nil {
			return w, core.Validation("invalid start date %q", start)
		}
		w.start = &t
	}
	if end != "" {
		t, err := core.ParseDate(end)
		if err != nil {
			return w, core.Validation("invalid end date %q", end)
		}
		w.end = &t
	}
	return w, nil
}

// datedRows parses every row date, dropping rows whose date is empty or
// malformed. It returns the kept rows, the latest date and the drop count.
func datedRows(rows []core.Transaction) ([]datedRow, time.Time, int) {
	var (
		out     = make([]datedRow, 0, len(rows))
		latest  time.Time
		invalid int
	)
	for _, r := range rows {
		t, err := core.ParseDate(r.Date)
		if err != nil {
			invalid++
			continue
		}
		if len(out) == 0 || t.After(latest) {
			latest = t
		}
		out = append(out, datedRow{Transaction: r, at: t})
	}
	return out, latest, invalid
}

func (w window) filter(rows []datedRow, latest time.Time) []datedRow {
	keep := func(ok func(time.Time) bool) []datedRow {
		out := make([]datedRow, 0, len(rows))
		for _, r := range rows {
			if ok(r.at) {
				out = append(out, r)
			}
		}
		return out
	}

	switch w.period {
	case core.PeriodCustom:
		if w.start == nil || w.end == nil {
			return rows
		}
		start, end := *w.start, *w.end
		return keep(func(t time.Time) bool { return !t.Before(start) && !t.After(end) })
	case core.PeriodWeekly:
		from := latest.AddDate(0, 0, -6)
		return keep(func(t time.Time) bool { return !t.Before(from) })
	case core.PeriodMonthly:
		from := core.SubtractMonth(latest)
		return keep(func(t time.Time) bool { return !t.Before(from) })
	default:
		return rows
	}
}

// aggregate builds every section of a report from the windowed rows.
// total_spent is the exact sum; every other amount is rounded to cents.
func aggregate(rows []datedRow, cats []core.Category, budgets []core.Budget) core.Report {
	names := core.CategoryNames(cats)
	limits := make(map[int64]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		limits[b.CategoryID] = b.Limit
	}

	r := core.Report{
		TotalSpent:       decimal.Zero,
		TransactionCount: len(rows),
		TopItems:         []core.ItemStat{},
		CategoryTotals:   []core.CategoryTotal{},
		CategoryOverages: []core.CategoryOverage{},
		ReceiptSummary:   []core.ReceiptSummary{},
	}
	for _, row := range rows {
		r.TotalSpent = r.TotalSpent.Add(row.Amount)
	}

	r.TopItems = topItems(rows)
	r.CategoryTotals = categoryTotals(rows, names)
	r.CategoryOverages = categoryOverages(rows, names, limits)
	r.ReceiptSummary = receiptSummary(rows, names)
	r.DailySpend = bucket(rows, func(t time.Time) string { return t.Format(core.DayLayout) })
	r.WeeklySpend = bucket(rows, core.ISOWeekLabel)
	r.MonthlySpend = bucket(rows, core.MonthLabel)
	return r
}

// topItems ranks descriptions by occurrence; ties keep first-seen order.
func topItems(rows []datedRow) []core.ItemStat {
	index := make(map[string]int)
	stats := []core.ItemStat{}
	for _, row := range rows {
		i, ok := index[row.Text]
		if !ok {
			i = len(stats)
			index[row.Text] = i
			stats = append(stats, core.ItemStat{Text: row.Text, Total: decimal.Zero})
		}
		stats[i].Count++
		stats[i].Total = stats[i].Total.Add(row.Amount)
	}
	sort.SliceStable(stats, func(a, b int) bool { return stats[a].Count > stats[b].Count })
	if len(stats) > topItemsLimit {
		stats = stats[:topItemsLimit]
	}
	for i := range stats {
		stats[i].Total = core.Round2(stats[i].Total)
	}
	return stats
}

func categoryTotals(rows []datedRow, names map[int64]string) []core.CategoryTotal {
	sums := make(map[int64]decimal.Decimal)
	for _, row := range rows {
		sums[row.CategoryID] = sums[row.CategoryID].Add(row.Amount)
	}
	ids := make([]int64, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	out := make([]core.CategoryTotal, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.CategoryTotal{
			CategoryID: id,
			Name:       core.NameFor(names, id),
			Total:      core.Round2(sums[id]),
		})
	}
	return out
}

// categoryOverages sums spend per day and category. A category without a
// budget has no limit and no verdict; otherwise it is exceeded when the
// exact spend is strictly above the limit.
func categoryOverages(rows []datedRow, names map[int64]string, limits map[int64]decimal.Decimal) []core.CategoryOverage {
	type dayCat struct {
		day string
		cat int64
	}
	sums := make(map[dayCat]decimal.Decimal)
	var keys []dayCat
	for _, row := range rows {
		k := dayCat{day: row.at.Format(core.DayLayout), cat: row.CategoryID}
		if _, ok := sums[k]; !ok {
			keys = append(keys, k)
		}
		sums[k] = sums[k].Add(row.Amount)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].day != keys[b].day {
			return keys[a].day < keys[b].day
		}
		return keys[a].cat < keys[b].cat
	})

	out := make([]core.CategoryOverage, 0, len(keys))
	for _, k := range keys {
		spent := sums[k]
		o := core.CategoryOverage{
			Date:       k.day,
			CategoryID: k.cat,
			Name:       core.NameFor(names, k.cat),
			Spent:      core.Round2(spent),
		}
		if limit, ok := limits[k.cat]; ok {
			exceeded := spent.GreaterThan(limit)
			o.Limit = &limit
			o.Exceeded = &exceeded
		}
		out = append(out, o)
	}
	return out
}

// receiptSummary groups rows per receipt in first-seen order.
func receiptSummary(rows []datedRow, names map[int64]string) []core.ReceiptSummary {
	type acc struct {
		earliest time.Time
		total    decimal.Decimal
		items    []core.ReceiptSummaryItem
	}
	index := make(map[string]int)
	var (
		ids  []string
		accs []*acc
	)
	for _, row := range rows {
		i, ok := index[row.ReceiptID]
		if !ok {
			i = len(accs)
			index[row.ReceiptID] = i
			ids = append(ids, row.ReceiptID)
			accs = append(accs, &acc{earliest: row.at, total: decimal.Zero})
		}
		a := accs[i]
		if row.at.Before(a.earliest) {
			a.earliest = row.at
		}
		a.total = a.total.Add(row.Amount)
		a.items = append(a.items, core.ReceiptSummaryItem{
			Text:       row.Text,
			Amount:     core.Round2(row.Amount),
			CategoryID: row.CategoryID,
			Name:       core.NameFor(names, row.CategoryID),
		})
	}

	out := make([]core.ReceiptSummary, 0, len(accs))
	for i, a := range accs {
		out = append(out, core.ReceiptSummary{
			ReceiptID: ids[i],
			Date:      a.earliest.Format(core.DayLayout),
			Total:     core.Round2(a.total),
			Items:     a.items,
		})
	}
	return out
}

// bucket sums rows under label and returns the buckets in ascending label
// order. Every label format used here sorts chronologically as a string.
func bucket(rows []datedRow, label func(time.Time) string) []core.BucketTotal {
	sums := make(map[string]decimal.Decimal)
	for _, row := range rows {
		l := label(row.at)
		sums[l] = sums[l].Add(row.Amount)
	}
	labels := make([]string, 0, len(sums))
	for l := range sums {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	out := make([]core.BucketTotal, 0, len(labels))
	for _, l := range labels {
		out = append(out, core.BucketTotal{Bucket: l, Total: core.Round2(sums[l])})
	}
	return out
}
