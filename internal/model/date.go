package model

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"gatherbot/internal/errdef"
)

// Layouts used for every user-facing and persisted date value.
const (
	DateFormat  = "2006-01-02"
	MonthFormat = "2006-01"
	ClockFormat = "15:04"
)

// Date is a whole calendar day with no time component. Its string form is
// YYYY-MM-DD, so lexicographic order is chronological order.
// Every constructor yields UTC midnight, so Dates compare with == and work
// as map keys.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses a YYYY-MM-DD value. Out-of-range months or days fail.
func ParseDate(v string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(v))
	if err != nil {
		return Date{}, errdef.NewInvalidFormat("invalid date %q: expected YYYY-MM-DD", v)
	}
	return Date{t}, nil
}

// ParseDates parses every value, failing on the first invalid one.
func ParseDates(values []string) ([]Date, error) {
	out := make([]Date, 0, len(values))
	for _, v := range values {
		d, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateFormat)
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Weekday() string { return d.t.Weekday().String()[:3] }
func (d Date) Month() Month { return Month{Year: d.t.Year(), Month: d.t.Month()} }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Month is the (year, month) pair an availability poll concerns.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month of t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM value.
func ParseMonth(v string) (Month, error) {
	t, err := time.Parse(MonthFormat, strings.TrimSpace(v))
	if err != nil {
		return Month{}, errdef.NewInvalidFormat("invalid month %q: expected YYYY-MM, e.g. 2025-11", v)
	}
	return MonthOf(t), nil
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.First().t.Format(MonthFormat)
}

func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

func (m Month) Last() Date {
	return Date{m.First().t.AddDate(0, 1, -1)}
}

// Contains reports whether d falls inside m.
func (m Month) Contains(d Date) bool {
	return !m.IsZero() && d.Month() == m
}

// Days enumerates every calendar date of the month in order.
func (m Month) Days() []Date {
	if m.IsZero() {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: m.First().t,
		Until:   m.Last().t,
	})
	if err != nil {
		return nil
	}
	all := r.All()
	days := make([]Date, 0, len(all))
	for _, t := range all {
		days = append(days, DateOf(t))
	}
	return days
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
