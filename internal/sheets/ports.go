// Package sheets mirrors ledger records into a spreadsheet.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordMirror keeps an external copy of every record, one row each.
	RecordMirror interface {
		// AppendRecord adds a row for r. Appending an ID that is already
		// present is a no-op so redelivered events stay idempotent.
		AppendRecord(ctx context.Context, userID string, kind core.Kind, r core.Record) error
		// DeleteRecord removes the row carrying recordID. A missing row is not an error.
		DeleteRecord(ctx context.Context, recordID string) error
	}
)

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "User", "Kind", "Category", "Title", "Amount", "Date"}

// Row renders a record in Header column order.
func Row(userID string, kind core.Kind, r core.Record) []string {
	return []string{r.ID, userID, kind.Label(), r.Category, r.Title, r.Amount.String(), r.Date.String()}
}
