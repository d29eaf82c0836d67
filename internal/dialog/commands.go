package dialog

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

func (m *Machine) start(_ context.Context, msg Message) ([]Reply, error) {
	return []Reply{removeKeyboard(startText(msg.DisplayName))}, nil
}

func (m *Machine) help(context.Context, Message) ([]Reply, error) {
	return []Reply{text(helpText())}, nil
}

func (m *Machine) categories(context.Context, Message) ([]Reply, error) {
	return []Reply{text(report.Numbered(core.ExpenseCategoryLabels()))}, nil
}

// list shows every record of both ledgers.
func (m *Machine) list(ctx context.Context, msg Message) ([]Reply, error) {
	expenses, err := m.store.ListAll(ctx, msg.UserID, core.Expenses)
	if err != nil {
		return nil, err
	}
	incomes, err := m.store.ListAll(ctx, msg.UserID, core.Incomes)
	if err != nil {
		return nil, err
	}
	return []Reply{
		text(report.Section(core.Expenses, expenses)),
		text(report.Section(core.Incomes, incomes)),
	}, nil
}

func (m *Machine) unknownCommand(context.Context, Message) ([]Reply, error) {
	return []Reply{text(unknownCommandText())}, nil
}

func (m *Machine) defaultMessage(context.Context, Message) ([]Reply, error) {
	return []Reply{text(msgDefault)}, nil
}
