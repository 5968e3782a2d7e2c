package availability

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	_ "time/tzdata"
)

// Defaults for the storefront's operating calendar
const (
	DefaultTimezone    = "America/New_York"
	DefaultCutoffHour  = 10
	DefaultHorizonDays = 30
)

// DefaultOpenWeekdays is the Monday-Friday service week
var DefaultOpenWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// Configuration errors. These are fatal at startup.
var (
	ErrInvalidCutoffHour = errors.New("availability: cutoff hour must be between 0 and 23")
	ErrNoOpenWeekdays    = errors.New("availability: at least one open weekday is required")
	ErrInvalidWeekday    = errors.New("availability: invalid weekday")
	ErrNilLocation       = errors.New("availability: service location is required")
	ErrInvalidHorizon    = errors.New("availability: horizon must be positive")
)

// CalendarConfig describes the service week
type CalendarConfig struct {
	Location     *time.Location
	CutoffHour   int
	OpenWeekdays []time.Weekday
}

// DefaultCalendarConfig returns America/New_York, 10:00 cutoff, Monday-Friday
func DefaultCalendarConfig() CalendarConfig {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		// tzdata is embedded, so this only fails on a corrupted build
		panic(err)
	}
	return CalendarConfig{
		Location:     loc,
		CutoffHour:   DefaultCutoffHour,
		OpenWeekdays: slices.Clone(DefaultOpenWeekdays),
	}
}

// Validate checks the configuration eagerly
func (c CalendarConfig) Validate() error {
	if c.Location == nil {
		return ErrNilLocation
	}
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		return fmt.Errorf("%w: got %d", ErrInvalidCutoffHour, c.CutoffHour)
	}
	if len(c.OpenWeekdays) == 0 {
		return ErrNoOpenWeekdays
	}
	for _, wd := range c.OpenWeekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, wd)
		}
	}
	return nil
}

// ParseWeekday accepts full or three-letter English weekday names in any case
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := wd.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ValidateHorizon rejects non-positive display horizons
func ValidateHorizon(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidHorizon, days)
	}
	return nil
}

// Calendar evaluates the order window. It is immutable and safe for
// concurrent use.
type Calendar struct {
	loc        *time.Location
	cutoffHour int
	open       [7]bool
}

// NewCalendar validates cfg and builds a Calendar
func NewCalendar(cfg CalendarConfig) (*Calendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Calendar{loc: cfg.Location, cutoffHour: cfg.CutoffHour}
	for _, wd := range cfg.OpenWeekdays {
		c.open[wd] = true
	}
	return c, nil
}

// MustNewCalendar is NewCalendar for configurations known to be valid
func MustNewCalendar(cfg CalendarConfig) *Calendar {
	c, err := NewCalendar(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the service timezone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// CutoffHour returns the hour-of-day after which today stops being orderable
func (c *Calendar) CutoffHour() int {
	return c.cutoffHour
}

// IsOpenDay reports whether the kitchen delivers on d's weekday
func (c *Calendar) IsOpenDay(d ServiceDay) bool {
	return c.open[d.Weekday()]
}

// Today returns the calendar date of now in the service timezone
func (c *Calendar) Today(now time.Time) ServiceDay {
	return DayOf(now, c.loc)
}

// ActiveServiceDay returns the single day currently open for ordering: today
// if today is an open day and the cutoff hour has not been reached, otherwise
// the nearest later open day.
func (c *Calendar) ActiveServiceDay(now time.Time) ServiceDay {
	local := now.In(c.loc)
	today := DayOf(local, c.loc)
	if c.IsOpenDay(today) && local.Hour() < c.cutoffHour {
		return today
	}
	// NewCalendar guarantees an open weekday, so this ends within 7 steps.
	next := today.AddDays(1)
	for !c.IsOpenDay(next) {
		next = next.AddDays(1)
	}
	return next
}

// StatusOf classifies target relative to now. The checks run in a fixed
// order (ACTIVE, TODAY_CLOSED, PAST, WEEKEND, PREVIEW) so the five statuses
// partition the calendar with no overlap.
func (c *Calendar) StatusOf(now time.Time, target ServiceDay) DateStatus {
	today := c.Today(now)
	switch {
	case target == c.ActiveServiceDay(now):
		return StatusActive
	case target == today:
		return StatusTodayClosed
	case target.Before(today):
		return StatusPast
	case !c.IsOpenDay(target):
		return StatusWeekend
	default:
		return StatusPreview
	}
}

// IsOrderable reports whether target accepts new cart lines at now
func (c *Calendar) IsOrderable(now time.Time, target ServiceDay, allowPreview bool) bool {
	return c.StatusOf(now, target).Orderable(allowPreview)
}

// WindowDates yields horizonDays+1 consecutive days starting at today,
// regardless of status. The sequence is lazy and may be ranged over any
// number of times. A negative horizon yields nothing.
func (c *Calendar) WindowDates(now time.Time, horizonDays int) iter.Seq[ServiceDay] {
	start := c.Today(now)
	return func(yield func(ServiceDay) bool) {
		for i := 0; i <= horizonDays; i++ {
			if !yield(start.AddDays(i)) {
				return
			}
		}
	}
}

// DayView is a classified window entry for display
type DayView struct {
	Day       ServiceDay `json:"date"`
	Label     string     `json:"label"`
	Weekday   string     `json:"weekday"`
	Status    DateStatus `json:"status"`
	Orderable bool       `json:"orderable"`
}

// Window classifies every day of WindowDates
func (c *Calendar) Window(now time.Time, horizonDays int, allowPreview bool) []DayView {
	views := make([]DayView, 0, max(horizonDays+1, 0))
	for d := range c.WindowDates(now, horizonDays) {
		status := c.StatusOf(now, d)
		views = append(views, DayView{
			Day:       d,
			Label:     d.Display(),
			Weekday:   d.WeekdayKey(),
			Status:    status,
			Orderable: status.Orderable(allowPreview),
		})
	}
	return views
}

// ActiveOrder describes the active service day for order payloads and banners
type ActiveOrder struct {
	Day        ServiceDay `json:"date"`
	Display    string     `json:"display"`
	WeekdayKey string     `json:"weekday"`
	CutoffHour int        `json:"cutoff_hour"`
}

// ActiveOrder returns the active service day with its display string
func (c *Calendar) ActiveOrder(now time.Time) ActiveOrder {
	d := c.ActiveServiceDay(now)
	return ActiveOrder{
		Day:        d,
		Display:    d.Display(),
		WeekdayKey: d.WeekdayKey(),
		CutoffHour: c.cutoffHour,
	}
}
