// Package period resolves symbolic time periods into inclusive date ranges.
//
// Each period (week, month, year) has its own resolver strategy; resolvers are
// looked up by name so new periods can be registered without touching callers.
package period

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Period names a calendar period anchored at today.
type Period string

const (
	Week  Period = "Week"
	Month Period = "Month"
	Year  Period = "Year"
)

// Range is an inclusive [Start, End] date interval.
type Range struct {
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls within the range, both ends included.
func (r Range) Contains(d core.Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

func (r Range) String() string {
	return r.Start.String() + " - " + r.End.String()
}

// Resolver is the strategy interface for turning a period into a range.
type Resolver interface {
	Resolve(today core.Date) Range
}

// WeekResolver covers Monday through Sunday of the week containing today.
type WeekResolver struct{}

func (WeekResolver) Resolve(today core.Date) Range {
	offset := (int(today.Weekday()) + 6) % 7
	start := today.AddDays(-offset)
	return Range{Start: start, End: start.AddDays(6)}
}

// MonthResolver covers the first through the last day of the current month.
type MonthResolver struct{}

func (MonthResolver) Resolve(today core.Date) Range {
	start := core.NewDate(today.Year(), int(today.Month()), 1)
	end := core.DateOf(start.AddDate(0, 1, -1))
	return Range{Start: start, End: end}
}

// YearResolver covers January 1 through December 31 of the current year.
type YearResolver struct{}

func (YearResolver) Resolve(today core.Date) Range {
	return Range{
		Start: core.NewDate(today.Year(), 1, 1),
		End:   core.NewDate(today.Year(), 12, 31),
	}
}

var resolvers = map[Period]Resolver{
	Week:  WeekResolver{},
	Month: MonthResolver{},
	Year:  YearResolver{},
}

// Periods lists the supported periods in the order they are offered to users.
func Periods() []Period {
	return []Period{Week, Month, Year}
}

// ParsePeriod matches user input against the supported periods exactly.
func ParsePeriod(s string) (Period, bool) {
	p := Period(strings.TrimSpace(s))
	_, ok := resolvers[p]
	return p, ok
}

// Resolve returns the range of period p around today.
func Resolve(p Period, today core.Date) (Range, error) {
	r, ok := resolvers[p]
	if !ok {
		return Range{}, fmt.Errorf("%w: unknown period %q", core.ErrValidation, p)
	}
	return r.Resolve(today), nil
}

// ParseRange parses "YYYY-MM-DD - YYYY-MM-DD". Both bounds must be valid,
// not after today, and in order.
func ParseRange(s string, today core.Date) (Range, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " - ", 2)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: expected \"start - end\", got %q", core.ErrInvalidRange, s)
	}
	start, err := core.ParseDate(parts[0], today)
	if err != nil {
		return Range{}, fmt.Errorf("%w: start: %w", core.ErrInvalidRange, err)
	}
	end, err := core.ParseDate(parts[1], today)
	if err != nil {
		return Range{}, fmt.Errorf("%w: end: %w", core.ErrInvalidRange, err)
	}
	if end.Before(start.Time) {
		return Range{}, fmt.Errorf("%w: %s is before %s", core.ErrInvalidRange, end, start)
	}
	return Range{Start: start, End: end}, nil
}
