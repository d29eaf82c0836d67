package report

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/period"
)

// CategoryTotal is the truncated sum of one category.
type CategoryTotal struct {
	Category string
	Total    int64
}

// Filter keeps records dated within r. A nil range keeps everything.
func Filter(records []core.Record, r *period.Range) []core.Record {
	if r == nil {
		return records
	}
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterCategory keeps records of one category.
func FilterCategory(records []core.Record, category string) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out
}

func sum(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// SumAmounts adds amounts exactly and truncates the result for display.
func SumAmounts(records []core.Record) int64 {
	return core.TruncateAmount(sum(records))
}

// SumByCategory totals each category of l in ledger order. Records outside r
// are skipped; a nil range counts every record.
func SumByCategory(l core.Ledger, r *period.Range) []CategoryTotal {
	buckets := l.Buckets()
	out := make([]CategoryTotal, len(buckets))
	for i, b := range buckets {
		out[i] = CategoryTotal{Category: b.Category, Total: SumAmounts(Filter(b.Records, r))}
	}
	return out
}
