package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func strs(ts []TimeOfDay) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.String())
	}
	return out
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, tod.Hour())
	assert.Equal(t, 30, tod.Minute())
	assert.Equal(t, "09:30", tod.String())

	tod, err = ParseTimeOfDay("21:00:00")
	require.NoError(t, err)
	assert.Equal(t, "21:00", tod.String())

	for _, bad := range []string{"", "9", "24:00", "10:60", "aa:bb", "10:00:05", "1:2:3:4"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	b, err := json.Marshal([]TimeOfDay{NewTimeOfDay(8, 0), NewTimeOfDay(19, 30)})
	require.NoError(t, err)
	assert.JSONEq(t, `["08:00","19:30"]`, string(b))

	var back []TimeOfDay
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []TimeOfDay{480, 1170}, back)
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"morning": Morning, "AFTERNOON": Afternoon, " Evening ": Evening,
		"manha": Morning, "TARDE": Afternoon, "noite": Evening,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCategory("midnight")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestNewCalendar_SortsAndRejectsDuplicates(t *testing.T) {
	c, err := NewCalendar(map[Category][]TimeOfDay{
		Morning: {MustParseTimeOfDay("11:00"), MustParseTimeOfDay("08:00")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "11:00"}, strs(c.Slots(Morning)))

	_, err = NewCalendar(map[Category][]TimeOfDay{
		Morning: {MustParseTimeOfDay("08:00"), MustParseTimeOfDay("08:00")},
	})
	assert.Error(t, err)
}

func TestCalendar_SlotsAreCopies(t *testing.T) {
	c := DefaultCalendar()
	s := c.Slots(Morning)
	s[0] = 0
	assert.Equal(t, "08:00", c.Slots(Morning)[0].String())
}

func TestAvailableSlots(t *testing.T) {
	c := DefaultCalendar()
	today := at(2026, 3, 10, 0, 0)

	tests := []struct {
		name string
		cat  Category
		date time.Time
		now  time.Time
		want []string
	}{
		{"past date", Morning, at(2026, 3, 9, 0, 0), at(2026, 3, 10, 7, 0), []string{}},
		{"future date", Evening, at(2026, 3, 11, 0, 0), at(2026, 3, 10, 23, 59), []string{"18:00", "19:30", "21:00"}},
		{"today before first", Morning, today, at(2026, 3, 10, 7, 59), []string{"08:00", "09:30", "11:00"}},
		{"today mid morning", Morning, today, at(2026, 3, 10, 9, 0), []string{"09:30", "11:00"}},
		{"today exactly on slot", Morning, today, at(2026, 3, 10, 9, 30), []string{"11:00"}},
		{"today after last", Morning, today, at(2026, 3, 10, 11, 1), []string{}},
		{"unknown category", Category("LATE"), at(2026, 3, 11, 0, 0), today, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AvailableSlots(tt.cat, tt.date, tt.now)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, strs(got))
		})
	}
}

func TestAvailableSlots_EmptyCategory(t *testing.T) {
	c, err := NewCalendar(map[Category][]TimeOfDay{Morning: {}})
	require.NoError(t, err)
	assert.Empty(t, c.AvailableSlots(Morning, at(2030, 1, 1, 0, 0), at(2026, 1, 1, 0, 0)))
	assert.Equal(t, []Category{Morning}, c.Categories())
}

func TestAvailableSlots_MonotoneThroughTheDay(t *testing.T) {
	c := DefaultCalendar()
	date := at(2026, 5, 1, 0, 0)
	prev := len(c.AvailableSlots(Afternoon, date, date))
	for minute := 0; minute < 24*60; minute += 15 {
		now := date.Add(time.Duration(minute) * time.Minute)
		got := c.AvailableSlots(Afternoon, date, now)
		require.LessOrEqual(t, len(got), prev)
		for _, tod := range got {
			require.Greater(t, tod, Of(now))
		}
		prev = len(got)
	}
	assert.Empty(t, c.AvailableSlots(Afternoon, date, at(2026, 5, 1, 16, 0)))
}

func TestAvailableSlots_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	c := DefaultCalendar()
	// 02:00 UTC on the 11th is still 23:00 on the 10th in BRT.
	now := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC).In(loc)
	got := c.AvailableSlots(Evening, at(2026, 3, 10, 0, 0), now)
	assert.Empty(t, got)
	got = c.AvailableSlots(Evening, at(2026, 3, 11, 0, 0), now)
	assert.Len(t, got, 3)
}

func TestStartsAt(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	got := StartsAt(at(2026, 3, 10, 0, 0), MustParseTimeOfDay("19:30"), loc)
	assert.Equal(t, time.Date(2026, 3, 10, 19, 30, 0, 0, loc), got)
}

func TestCategoryOfAndHasSlot(t *testing.T) {
	c := DefaultCalendar()
	cat, ok := c.CategoryOf(MustParseTimeOfDay("14:30"))
	assert.True(t, ok)
	assert.Equal(t, Afternoon, cat)
	_, ok = c.CategoryOf(MustParseTimeOfDay("14:31"))
	assert.False(t, ok)
	assert.True(t, c.HasSlot(Evening, MustParseTimeOfDay("21:00")))
	assert.False(t, c.HasSlot(Morning, MustParseTimeOfDay("21:00")))
}

func TestOpenSlots(t *testing.T) {
	c := DefaultCalendar()
	date := at(2026, 3, 10, 0, 0)
	now := at(2026, 3, 10, 15, 0)
	taken := map[TimeOfDay]bool{MustParseTimeOfDay("19:30"): true}

	got := c.OpenSlots(date, now, taken)
	assert.NotContains(t, got, Morning)
	assert.Equal(t, []string{"16:00"}, strs(got[Afternoon]))
	assert.Equal(t, []string{"18:00", "21:00"}, strs(got[Evening]))
}
