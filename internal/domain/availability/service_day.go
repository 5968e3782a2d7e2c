package availability

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

const (
	// KeyLayout is the canonical wire form of a ServiceDay
	KeyLayout = "2006-01-02"
	// DisplayLayout renders a ServiceDay for customers, e.g. "Monday, Oct 19"
	DisplayLayout = "Monday, Jan 2"
)

// ServiceDay is a civil calendar date with no time component.
// It is a comparable value type: two ServiceDays are equal iff they name the
// same year, month and day.
type ServiceDay struct {
	year  int
	month time.Month
	day   int
}

// NewServiceDay builds a ServiceDay, normalizing overflow (e.g. Oct 32 becomes Nov 1)
func NewServiceDay(year int, month time.Month, day int) ServiceDay {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return ServiceDay{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DayOf returns the calendar date of t as observed in loc
func DayOf(t time.Time, loc *time.Location) ServiceDay {
	y, m, d := t.In(loc).Date()
	return ServiceDay{year: y, month: m, day: d}
}

// ParseServiceDay parses a "2006-01-02" key
func ParseServiceDay(s string) (ServiceDay, error) {
	t, err := time.Parse(KeyLayout, strings.TrimSpace(s))
	if err != nil {
		return ServiceDay{}, fmt.Errorf("availability: invalid service day %q: %w", s, err)
	}
	return NewServiceDay(t.Year(), t.Month(), t.Day()), nil
}

// MustParseServiceDay is ParseServiceDay for literals known to be valid
func MustParseServiceDay(s string) ServiceDay {
	d, err := ParseServiceDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d ServiceDay) midnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Year returns the year
func (d ServiceDay) Year() int { return d.year }

// Month returns the month
func (d ServiceDay) Month() time.Month { return d.month }

// Day returns the day of month
func (d ServiceDay) Day() int { return d.day }

// IsZero reports whether d is the zero value
func (d ServiceDay) IsZero() bool {
	return d == ServiceDay{}
}

// Weekday returns the day of the week
func (d ServiceDay) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// IsWeekend reports whether d is a Saturday or Sunday
func (d ServiceDay) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddDays returns the date n days after d (n may be negative)
func (d ServiceDay) AddDays(n int) ServiceDay {
	return NewServiceDay(d.year, d.month, d.day+n)
}

// Compare returns -1, 0 or +1 as d is before, equal to, or after o
func (d ServiceDay) Compare(o ServiceDay) int {
	return cmp.Or(
		cmp.Compare(d.year, o.year),
		cmp.Compare(d.month, o.month),
		cmp.Compare(d.day, o.day),
	)
}

// Before reports whether d is strictly earlier than o
func (d ServiceDay) Before(o ServiceDay) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly later than o
func (d ServiceDay) After(o ServiceDay) bool { return d.Compare(o) > 0 }

// Key returns the canonical "2006-01-02" form
func (d ServiceDay) Key() string {
	return d.midnight().Format(KeyLayout)
}

// Display returns the customer-facing label, e.g. "Monday, Oct 19"
func (d ServiceDay) Display() string {
	return d.midnight().Format(DisplayLayout)
}

// WeekdayKey returns the lowercase weekday name used to key weekly menus
func (d ServiceDay) WeekdayKey() string {
	return strings.ToLower(d.Weekday().String())
}

// String implements fmt.Stringer
func (d ServiceDay) String() string {
	return d.Key()
}

// MarshalText encodes the day as its key, so it serializes as a JSON string
func (d ServiceDay) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.Key()), nil
}

// UnmarshalText decodes a "2006-01-02" key
func (d *ServiceDay) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = ServiceDay{}
		return nil
	}
	parsed, err := ParseServiceDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
