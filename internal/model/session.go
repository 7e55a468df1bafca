package model

import (
	"slices"
	"time"

	"github.com/iliyamo/theatre-ticketing/internal/schedule"
)

// Session is one scheduled showing of an Event.  Date carries only the
// calendar day; Time is the wall-clock start in the theatre's location.
// Areas are referenced by id.
//
// Fields:
//  ID       – primary key identifier.
//  EventID  – owning event.
//  Category – MORNING, AFTERNOON or EVENING.
//  Date     – calendar day of the showing (time part ignored).
//  Time     – start time of day, one of the category's slots.
//  Active   – inactive sessions cannot sell seats.
//  AreaIDs  – areas offered for this session.
type Session struct {
	ID       uint64             `json:"id"`
	EventID  uint64             `json:"event_id"`
	Category schedule.Category  `json:"category"`
	Date     time.Time          `json:"date"`
	Time     schedule.TimeOfDay `json:"time"`
	Active   bool               `json:"active"`
	AreaIDs  []uint64           `json:"area_ids"`
}

// StartsAt returns the session start as an instant in loc.
func (s *Session) StartsAt(loc *time.Location) time.Time {
	return schedule.StartsAt(s.Date, s.Time, loc)
}

// ClosedAt reports whether the session can no longer sell seats at now:
// it is inactive, or now is at or after its start.
func (s *Session) ClosedAt(now time.Time) bool {
	if !s.Active {
		return true
	}
	return !now.Before(s.StartsAt(now.Location()))
}

// OffersArea reports whether areaID is attached to the session.
func (s *Session) OffersArea(areaID uint64) bool {
	return slices.Contains(s.AreaIDs, areaID)
}
