package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only date format accepted from users and written to storage.
const DateLayout = "2006-01-02"

// Date is a calendar date stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string and rejects dates after today.
func ParseDate(s string, today Date) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d := DateOf(t)
	if d.After(today.Time) {
		return Date{}, fmt.Errorf("%w: %s", ErrFutureDate, d)
	}
	return d, nil
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = DateOf(t)
	return nil
}
