package report

import (
	"fintrack/internal/core"
	"fintrack/internal/period"
)

// Scope selects which ledgers statistics are computed over.
type Scope string

// Criterion selects how General statistics are grouped.
type Criterion string

const (
	General       Scope = "General"
	ScopeIncomes  Scope = "Incomes"
	ScopeExpenses Scope = "Expenses"

	ByCategory Criterion = "Category"
	ByDate     Criterion = "Date"
)

// Scopes lists scopes in keyboard order.
func Scopes() []Scope {
	return []Scope{General, ScopeIncomes, ScopeExpenses}
}

// Criteria lists criteria in keyboard order.
func Criteria() []Criterion {
	return []Criterion{ByCategory, ByDate}
}

// Kind maps a single-ledger scope to its ledger kind.
func (s Scope) Kind() (core.Kind, bool) {
	switch s {
	case ScopeExpenses:
		return core.Expenses, true
	case ScopeIncomes:
		return core.Incomes, true
	default:
		return "", false
	}
}

// Chart is a request to draw a pie chart: one amount per label.
type Chart struct {
	Title   string
	Labels  []string
	Amounts []int64
}

// Empty reports whether the chart has nothing to draw.
func (c Chart) Empty() bool {
	for _, a := range c.Amounts {
		if a > 0 {
			return false
		}
	}
	return true
}

func (c *Chart) add(label string, amount int64) {
	c.Labels = append(c.Labels, label)
	c.Amounts = append(c.Amounts, amount)
}

// Statistics aggregates a user's ledgers.
//
//   - General by Date: two labels, total expenses and total incomes in r.
//   - General by Category: one label per category, expense categories first,
//     then income categories, each restricted to r when given.
//   - Expenses or Incomes: one label per category of that ledger, restricted
//     to r when given. The criterion is ignored.
func Statistics(u core.User, scope Scope, criterion Criterion, r *period.Range) Chart {
	c := Chart{Title: string(scope)}
	if kind, ok := scope.Kind(); ok {
		for _, t := range SumByCategory(*u.Ledger(kind), r) {
			c.add(t.Category, t.Total)
		}
		return c
	}

	switch criterion {
	case ByDate:
		c.add(core.Expenses.Label(), SumAmounts(Filter(u.Expenses.All(), r)))
		c.add(core.Incomes.Label(), SumAmounts(Filter(u.Incomes.All(), r)))
	default:
		for _, t := range SumByCategory(u.Expenses, r) {
			c.add(t.Category, t.Total)
		}
		for _, t := range SumByCategory(u.Incomes, r) {
			c.add(t.Category, t.Total)
		}
	}
	return c
}
