// Package report turns ledger records into text and chart data.
package report

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// NoRecords is shown in place of an empty list.
const NoRecords = "No records"

// FormatRecord renders one record the way users see it in lists.
//
//	expense: Category: Food, Name: Lunch (Date: 2024-01-05) - 12.5UAH
//	income:  Category: Salary (Date: 2024-01-05) - 300UAH
func FormatRecord(r core.Record, kind core.Kind) string {
	if kind == core.Expenses {
		return fmt.Sprintf("Category: %s, Name: %s (Date: %s) - %sUAH", r.Category, r.Title, r.Date, r.Amount.String())
	}
	return fmt.Sprintf("Category: %s (Date: %s) - %sUAH", r.Category, r.Date, r.Amount.String())
}

// FormatList formats records in order.
func FormatList(records []core.Record, kind core.Kind) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = FormatRecord(r, kind)
	}
	return out
}

// Numbered joins lines as a 1-indexed list, or returns NoRecords when empty.
func Numbered(lines []string) string {
	if len(lines) == 0 {
		return NoRecords
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, line)
	}
	return b.String()
}

// Section renders a titled numbered list, e.g. "Expenses:\n1. ...".
func Section(kind core.Kind, records []core.Record) string {
	return kind.Label() + ":\n" + Numbered(FormatList(records, kind))
}
