package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// recordRow converts a record into sheet values. Amount stays a string so
// USER_ENTERED input lets the sheet parse it as a number.
func recordRow(userID string, kind core.Kind, r core.Record) []any {
	cols := ports.Row(userID, kind, r)
	out := make([]any, len(cols))
	for i, v := range cols {
		out[i] = v
	}
	return out
}

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, v := range ports.Header {
		out[i] = v
	}
	return out
}

// findRowByID returns the zero-based row index whose first column equals id,
// or -1. values is the result of reading column A.
func findRowByID(values [][]any, id string) int {
	if id == "" {
		return -1
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}
