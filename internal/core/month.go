package core

import (
	"fmt"
	"time"
)

// Month is a calendar-month key in the "YYYY-MM" form used to scope budgets
// and monthly rollups. The zero value is not a valid month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the calendar month containing t, evaluated in UTC.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first instant of the month, UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	t := m.Start().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether t falls inside the month's UTC calendar bounds,
// from the first instant up to but excluding the first instant of the next
// month.
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(m.Start()) && u.Before(m.Next().Start())
}

// MarshalText lets Month serve directly as a JSON map key and field value.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(data []byte) error {
	parsed, err := ParseMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
