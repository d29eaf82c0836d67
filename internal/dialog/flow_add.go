package dialog

import (
	"context"
	"errors"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

// Add flow: category, title (expenses only), price, date.

func (m *Machine) startAdd(kind core.Kind) Handler {
	return func(_ context.Context, msg Message) ([]Reply, error) {
		m.sessions.Put(Session{UserID: msg.UserID, Flow: FlowAdd, State: AwaitingCategory, Kind: kind})
		if kind == core.Expenses {
			return []Reply{withKeyboard(msgChooseCategory, categoryKeyboard())}, nil
		}
		return []Reply{removeKeyboard(msgEnterCategory)}, nil
	}
}

func (m *Machine) addCategory(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	if s.Kind == core.Expenses {
		c, ok := core.MatchExpenseCategory(msg.Text)
		if !ok {
			return m.reprompt(s, withKeyboard(msgUnknownCategory, categoryKeyboard())), nil
		}
		s.Category = c.Key
		s.State = AwaitingTitle
		return []Reply{removeKeyboard(categorySelectedText(c.Label))}, nil
	}

	if msg.Text == "" {
		return m.reprompt(s, text(msgEmptyCategory)), nil
	}
	s.Category = msg.Text
	s.State = AwaitingPrice
	return []Reply{text(categoryEnteredText(msg.Text)), text(msgAmountIncome)}, nil
}

func (m *Machine) addTitle(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	if msg.Text == "" {
		return m.reprompt(s, text(msgEnterTitle)), nil
	}
	s.Title = msg.Text
	s.State = AwaitingPrice
	return []Reply{text(msgAmountSpent)}, nil
}

func (m *Machine) addPrice(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	amount, err := core.ParseAmount(msg.Text)
	switch {
	case errors.Is(err, core.ErrNonPositiveAmount):
		return m.reprompt(s, text(msgAmountPositive)), nil
	case err != nil:
		return m.reprompt(s, text(msgWrongAmount)), nil
	}
	s.Amount = amount
	s.State = AwaitingDate
	return []Reply{text(msgEnterDate)}, nil
}

func (m *Machine) addDate(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	today := m.today()
	date := today
	if !isNo(msg.Text) {
		d, err := core.ParseDate(msg.Text, today)
		switch {
		case errors.Is(err, core.ErrFutureDate):
			return m.reprompt(s, text(msgFutureDate)), nil
		case err != nil:
			return m.reprompt(s, text(msgInvalidDate)), nil
		}
		date = d
	}

	if err := m.store.EnsureCategory(ctx, s.UserID, s.Kind, s.Category); err != nil {
		return nil, err
	}
	saved, err := m.store.AppendRecord(ctx, s.UserID, s.Kind, core.Record{
		Category: s.Category,
		Title:    s.Title,
		Amount:   s.Amount,
		Date:     date,
	})
	if err != nil {
		return nil, err
	}

	s.State = Terminal
	return []Reply{text(addedText(report.FormatRecord(saved, s.Kind)))}, nil
}
