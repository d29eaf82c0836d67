package dialog

import (
	"context"
	"errors"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

// Delete flow: ledger kind, then the number of a record from the shown list.

func (m *Machine) startDelete(_ context.Context, msg Message) ([]Reply, error) {
	m.begin(msg.UserID, FlowDelete, AwaitingLedgerKind)
	return []Reply{withKeyboard(msgDeleteWhat, ledgerKeyboard())}, nil
}

func (m *Machine) deleteKind(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	var kind core.Kind
	switch msg.Text {
	case core.Expenses.Label():
		kind = core.Expenses
	case core.Incomes.Label():
		kind = core.Incomes
	default:
		return m.reprompt(s, withKeyboard(msgOptionInvalid, ledgerKeyboard())), nil
	}

	records, err := m.store.ListAll(ctx, s.UserID, kind)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		s.State = Terminal
		return []Reply{removeKeyboard(msgNoRecordsFound)}, nil
	}

	s.Kind = kind
	s.Refs = make([]core.RecordRef, len(records))
	for i, r := range records {
		s.Refs[i] = r.Ref()
	}
	s.State = AwaitingRecordIndex
	list := report.Numbered(report.FormatList(records, kind))
	return []Reply{removeKeyboard(msgDeleteEnterIndex + "\n" + list)}, nil
}

func (m *Machine) deleteIndex(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	n, err := strconv.Atoi(msg.Text)
	if err != nil || n < 1 || n > len(s.Refs) {
		return m.reprompt(s, text(msgWrongNumber)), nil
	}

	_, err = m.store.DeleteRecord(ctx, s.UserID, s.Kind, s.Refs[n-1])
	if errors.Is(err, core.ErrNotFound) {
		s.State = Terminal
		return []Reply{text(msgNoRecordsFound)}, nil
	}
	if err != nil {
		return nil, err
	}
	s.State = Terminal
	return []Reply{text(deletedText(n))}, nil
}
