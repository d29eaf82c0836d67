package core

import "strings"

// Category is one entry of the fixed expense enumeration. Key is what gets
// stored, Label is what the user sees on the keyboard.
type Category struct {
	Key   string
	Label string
}

var expenseCategories = []Category{
	{Key: "Home", Label: "Home 🏘"},
	{Key: "Transport", Label: "Transport 🚚"},
	{Key: "Utilities", Label: "Utilities 🧾"},
	{Key: "Food", Label: "Food 🍽"},
	{Key: "Insurance", Label: "Insurance 🏬"},
	{Key: "Health", Label: "Health Care 🏥"},
	{Key: "Children", Label: "Children 👶"},
	{Key: "Personal", Label: "Personal expenses 🛍"},
	{Key: "Debts", Label: "Debts, savings and investments 📊"},
	{Key: "Other", Label: "Other 📝"},
}

// ExpenseCategories returns the enumeration in display order.
func ExpenseCategories() []Category {
	return append([]Category(nil), expenseCategories...)
}

// ExpenseCategoryLabels returns just the labels, in display order.
func ExpenseCategoryLabels() []string {
	out := make([]string, len(expenseCategories))
	for i, c := range expenseCategories {
		out[i] = c.Label
	}
	return out
}

// CategoryKey extracts the storage key from free text: the leading word with
// trailing punctuation removed. "Debts, savings" becomes "Debts".
func CategoryKey(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;:!?")
}

// MatchExpenseCategory finds the enumerated category whose key equals the
// leading word of s. Matching is case-sensitive.
func MatchExpenseCategory(s string) (Category, bool) {
	key := CategoryKey(s)
	if key == "" {
		return Category{}, false
	}
	for _, c := range expenseCategories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
