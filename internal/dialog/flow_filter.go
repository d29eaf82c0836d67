package dialog

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/report"
)

// View flow: filter kind, period, then a category when filtering by category.

func (m *Machine) startFilter(_ context.Context, msg Message) ([]Reply, error) {
	m.begin(msg.UserID, FlowFilter, AwaitingFilterKind)
	return []Reply{withKeyboard(msgSelectFilter, filterKeyboard())}, nil
}

func (m *Machine) filterKind(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	switch msg.Text {
	case FilterDate, FilterCategory, FilterExpenses, FilterIncomes:
	default:
		return m.reprompt(s, withKeyboard(msgFilterInvalid, filterKeyboard())), nil
	}
	s.FilterKind = msg.Text
	s.State = AwaitingDateFilter
	return []Reply{withKeyboard(msgSelectPeriod, periodKeyboard())}, nil
}

func (m *Machine) filterPeriod(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	p, ok := period.ParsePeriod(msg.Text)
	if !ok {
		return m.reprompt(s, withKeyboard(msgPeriodInvalid, periodKeyboard())), nil
	}
	r, err := period.Resolve(p, m.today())
	if err != nil {
		return nil, err
	}
	s.Range = &r

	if s.FilterKind == FilterCategory {
		s.State = AwaitingCategoryChoice
		return []Reply{withKeyboard(msgChooseCategory, categoryKeyboard())}, nil
	}

	u, err := m.store.User(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	var kinds []core.Kind
	switch s.FilterKind {
	case FilterExpenses:
		kinds = []core.Kind{core.Expenses}
	case FilterIncomes:
		kinds = []core.Kind{core.Incomes}
	default:
		kinds = []core.Kind{core.Expenses, core.Incomes}
	}

	s.State = Terminal
	return sections(u, kinds, func(records []core.Record) []core.Record {
		return report.Filter(records, s.Range)
	}), nil
}

func (m *Machine) filterCategory(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	c, ok := core.MatchExpenseCategory(msg.Text)
	if !ok {
		return m.reprompt(s, withKeyboard(msgUnknownCategory, categoryKeyboard())), nil
	}
	u, err := m.store.User(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	s.State = Terminal
	return sections(u, []core.Kind{core.Expenses, core.Incomes}, func(records []core.Record) []core.Record {
		return report.FilterCategory(report.Filter(records, s.Range), c.Key)
	}), nil
}

// sections renders one numbered list per kind; the last reply hides the keyboard.
func sections(u core.User, kinds []core.Kind, keep func([]core.Record) []core.Record) []Reply {
	replies := make([]Reply, len(kinds))
	for i, kind := range kinds {
		replies[i] = text(report.Section(kind, keep(u.Ledger(kind).All())))
	}
	replies[len(replies)-1].RemoveKeyboard = true
	return replies
}
