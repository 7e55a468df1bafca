// Package schedule defines the fixed daily slot grid used for theatre
// sessions.  Each session category (morning, afternoon, evening) owns an
// ordered list of times of day.  The calendar answers which of those slots
// can still be sold or scheduled on a given date relative to the current
// wall-clock time.  Everything in this package is a pure function of its
// inputs; callers supply "now".
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Category identifies a period of the day.  The string values match the
// values stored in sessions.category.
type Category string

const (
	Morning   Category = "MORNING"
	Afternoon Category = "AFTERNOON"
	Evening   Category = "EVENING"
)

// ErrUnknownCategory is returned by ParseCategory for unrecognised input.
var ErrUnknownCategory = errors.New("unknown session category")

// categoryAliases accepts the legacy Portuguese names still found in old
// exports alongside the canonical English ones.
var categoryAliases = map[string]Category{
	"MORNING":   Morning,
	"AFTERNOON": Afternoon,
	"EVENING":   Evening,
	"MANHA":     Morning,
	"TARDE":     Afternoon,
	"NOITE":     Evening,
}

// ParseCategory converts user input into a Category.  Matching is case
// insensitive.
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (24h).  Seconds are accepted and must be
// zero, so values read back from a MySQL TIME column ("09:30:00") parse.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}
	return NewTimeOfDay(h, m), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants; it panics on error.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText lets TimeOfDay render as "HH:MM" in JSON.
func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses "HH:MM".
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Of returns the time of day of an instant in its own location.
func Of(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// StartsAt combines a calendar date and a time of day into an instant in
// loc.  Only the year, month and day of date are used.
func StartsAt(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc)
}

// Day truncates t to its calendar date in t's location and returns it as
// a UTC midnight value, suitable for equality checks between dates.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Calendar maps each category to its fixed, ordered slot list.  A Calendar
// is immutable once built and safe for concurrent use.
type Calendar struct {
	slots map[Category][]TimeOfDay
}

// NewCalendar copies the given table, sorts every slot list and rejects
// duplicate slots within a category.  A category with an empty list is
// legal.
func NewCalendar(table map[Category][]TimeOfDay) (*Calendar, error) {
	c := &Calendar{slots: make(map[Category][]TimeOfDay, len(table))}
	for cat, list := range table {
		cp := slices.Clone(list)
		slices.Sort(cp)
		for i := 1; i < len(cp); i++ {
			if cp[i] == cp[i-1] {
				return nil, fmt.Errorf("duplicate slot %s in category %s", cp[i], cat)
			}
		}
		c.slots[cat] = cp
	}
	return c, nil
}

// DefaultCalendar returns the theatre's standard grid: three sessions per
// period, ninety minutes apart.
func DefaultCalendar() *Calendar {
	c, _ := NewCalendar(map[Category][]TimeOfDay{
		Morning:   {MustParseTimeOfDay("08:00"), MustParseTimeOfDay("09:30"), MustParseTimeOfDay("11:00")},
		Afternoon: {MustParseTimeOfDay("13:00"), MustParseTimeOfDay("14:30"), MustParseTimeOfDay("16:00")},
		Evening:   {MustParseTimeOfDay("18:00"), MustParseTimeOfDay("19:30"), MustParseTimeOfDay("21:00")},
	})
	return c
}

// Categories returns the categories known to the calendar in canonical
// order (morning, afternoon, evening, then any custom ones sorted by name).
func (c *Calendar) Categories() []Category {
	out := make([]Category, 0, len(c.slots))
	for _, cat := range []Category{Morning, Afternoon, Evening} {
		if _, ok := c.slots[cat]; ok {
			out = append(out, cat)
		}
	}
	var extra []Category
	for cat := range c.slots {
		if cat != Morning && cat != Afternoon && cat != Evening {
			extra = append(extra, cat)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Slots returns a copy of the fixed slot list of a category.
func (c *Calendar) Slots(cat Category) []TimeOfDay {
	return slices.Clone(c.slots[cat])
}

// HasSlot reports whether tod is one of the category's fixed slots.
func (c *Calendar) HasSlot(cat Category, tod TimeOfDay) bool {
	_, found := slices.BinarySearch(c.slots[cat], tod)
	return found
}

// CategoryOf returns the category owning tod, if any.
func (c *Calendar) CategoryOf(tod TimeOfDay) (Category, bool) {
	for _, cat := range c.Categories() {
		if c.HasSlot(cat, tod) {
			return cat, true
		}
	}
	return "", false
}

// AvailableSlots returns the slots of cat that are still open on date
// given the current time now:
//
//	date before today -> none
//	date is today     -> slots strictly after now's time of day
//	date after today  -> the full list
//
// "Today" is the calendar day of now in now's location; only the year,
// month and day of date are considered.  The result is chronological and
// never nil.
func (c *Calendar) AvailableSlots(cat Category, date, now time.Time) []TimeOfDay {
	list := c.slots[cat]
	day, today := Day(date), Day(now)
	switch {
	case len(list) == 0, day.Before(today):
		return []TimeOfDay{}
	case day.After(today):
		return slices.Clone(list)
	}
	cur := Of(now)
	// list is sorted; find the first slot strictly after cur.
	i, found := slices.BinarySearch(list, cur)
	if found {
		i++
	}
	return slices.Clone(list[i:])
}

// OpenSlots returns, per category, the slots still open on date that are
// not in taken.  taken holds the times already used by existing sessions
// of the same event on that date.  Categories without an open slot are
// omitted.
func (c *Calendar) OpenSlots(date, now time.Time, taken map[TimeOfDay]bool) map[Category][]TimeOfDay {
	out := make(map[Category][]TimeOfDay)
	for _, cat := range c.Categories() {
		var open []TimeOfDay
		for _, tod := range c.AvailableSlots(cat, date, now) {
			if !taken[tod] {
				open = append(open, tod)
			}
		}
		if len(open) > 0 {
			out[cat] = open
		}
	}
	return out
}
