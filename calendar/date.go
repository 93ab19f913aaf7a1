// Package calendar provides the local-date arithmetic the attendance and
// leave engines are built on. Instants are stored in UTC everywhere; a
// Date is the LOCAL calendar day those instants are grouped under, and is
// only meaningful together with the owning user's time zone.
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity local calendar date ("YYYY-MM-DD")
// =============================================================================

// Date is a calendar day with no time-of-day and no zone attached.
// The zero value is not a valid date.
type Date struct {
	t time.Time // midnight UTC, used purely as a day counter
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year/month/day components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the local calendar date of an instant in the given zone.
// This is the grouping key for attendance records: a punch at 01:30 IST
// on March 11 belongs to March 11 even though it is March 10 in UTC.
func DateOf(at time.Time, loc *time.Location) Date {
	local := at.In(loc)
	return NewDate(local.Year(), local.Month(), local.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for tests and literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to other.
// Negative if other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Properties
func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) Weekday() string    { return d.t.Weekday().String() }
func (d Date) String() string     { return d.t.Format(dateLayout) }

// Range returns every date in [from, to] inclusive, in order.
// Returns nil when to is before from.
func Range(from, to Date) []Date {
	if to.Before(from) {
		return nil
	}
	dates := make([]Date, 0, from.DaysUntil(to)+1)
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}
