package dialog

import (
	"context"
	"errors"

	"fintrack/internal/chart"
	"fintrack/internal/period"
	"fintrack/internal/report"
)

// Statistics flow: scope, criterion (General only), then a range or "No".

func (m *Machine) startStatistics(_ context.Context, msg Message) ([]Reply, error) {
	m.begin(msg.UserID, FlowStatistics, AwaitingStatScope)
	return []Reply{withKeyboard(msgStatsWhat, scopeKeyboard())}, nil
}

func (m *Machine) statScope(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	scope := report.Scope(msg.Text)
	switch scope {
	case report.General:
		s.Scope = scope
		s.State = AwaitingStatCriterion
		return []Reply{withKeyboard(scopeChosenText(msg.Text)+"\n"+msgStatsCriterion, criterionKeyboard())}, nil
	case report.ScopeExpenses, report.ScopeIncomes:
		// A single ledger is always grouped by category; the range is optional.
		s.Scope = scope
		s.Criterion = report.ByCategory
		s.State = AwaitingStatRange
		return []Reply{removeKeyboard(scopeChosenText(msg.Text) + "\n" + msgStatsOptional)}, nil
	default:
		return m.reprompt(s, withKeyboard(msgProposedInvalid, scopeKeyboard())), nil
	}
}

func (m *Machine) statCriterion(_ context.Context, s *Session, msg Message) ([]Reply, error) {
	switch c := report.Criterion(msg.Text); c {
	case report.ByCategory:
		s.Criterion = c
		s.State = AwaitingStatRange
		return []Reply{removeKeyboard(msgStatsOptional)}, nil
	case report.ByDate:
		s.Criterion = c
		s.State = AwaitingStatRange
		return []Reply{removeKeyboard(msgStatsRequired)}, nil
	default:
		return m.reprompt(s, withKeyboard(msgProposedInvalid, criterionKeyboard())), nil
	}
}

func (m *Machine) statRange(ctx context.Context, s *Session, msg Message) ([]Reply, error) {
	var rng *period.Range
	if isNo(msg.Text) {
		if s.Criterion == report.ByDate {
			return m.reprompt(s, text(msgStatsNoForDate)), nil
		}
	} else {
		r, err := period.ParseRange(msg.Text, m.today())
		if err != nil {
			return m.reprompt(s, text(msgInvalidRange)), nil
		}
		rng = &r
	}

	u, err := m.store.User(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	stats := report.Statistics(u, s.Scope, s.Criterion, rng)
	s.State = Terminal
	if stats.Empty() {
		return []Reply{text(msgStatsEmpty)}, nil
	}

	img, err := m.renderer.Render(ctx, stats)
	if errors.Is(err, chart.ErrNothingToDraw) {
		return []Reply{text(msgStatsEmpty)}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Reply{{Image: &img}}, nil
}
