package dialog

import (
	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/report"
)

// Message is one inbound text from a user.
type Message struct {
	UserID      string
	DisplayName string
	Text        string
}

// Reply is one outbound message. Keyboard rows are suggested answers shown
// once; RemoveKeyboard hides a keyboard left from an earlier prompt.
type Reply struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
	Image          *chart.Image
}

func text(s string) Reply {
	return Reply{Text: s}
}

func withKeyboard(s string, rows [][]string) Reply {
	return Reply{Text: s, Keyboard: rows}
}

func removeKeyboard(s string) Reply {
	return Reply{Text: s, RemoveKeyboard: true}
}

// rowsOf splits options into keyboard rows of at most n buttons.
func rowsOf(options []string, n int) [][]string {
	var rows [][]string
	for i := 0; i < len(options); i += n {
		end := min(i+n, len(options))
		rows = append(rows, append([]string(nil), options[i:end]...))
	}
	return rows
}

func categoryKeyboard() [][]string {
	return rowsOf(core.ExpenseCategoryLabels(), 3)
}

func filterKeyboard() [][]string {
	return [][]string{{FilterDate, FilterCategory}, {FilterExpenses, FilterIncomes}}
}

func periodKeyboard() [][]string {
	ps := period.Periods()
	row := make([]string, len(ps))
	for i, p := range ps {
		row[i] = string(p)
	}
	return [][]string{row}
}

func ledgerKeyboard() [][]string {
	return [][]string{{core.Incomes.Label(), core.Expenses.Label()}}
}

func scopeKeyboard() [][]string {
	scopes := report.Scopes()
	row := make([]string, len(scopes))
	for i, s := range scopes {
		row[i] = string(s)
	}
	return [][]string{row}
}

func criterionKeyboard() [][]string {
	cs := report.Criteria()
	row := make([]string, len(cs))
	for i, c := range cs {
		row[i] = string(c)
	}
	return [][]string{row}
}
