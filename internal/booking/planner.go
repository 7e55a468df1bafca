package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
	"github.com/iliyamo/theatre-ticketing/internal/seating"
)

// SessionStore persists sessions.  CreateSession returns an error
// matching model.ErrSessionExists when the event already has a session at
// the same date and time.
type SessionStore interface {
	Event(ctx context.Context, id uint64) (*model.Event, error)
	Area(ctx context.Context, id uint64) (*model.Area, error)
	SessionsByEvent(ctx context.Context, eventID uint64) ([]*model.Session, error)
	CreateSession(ctx context.Context, s *model.Session) (*model.Session, error)
}

// NewSession describes a session to schedule.
type NewSession struct {
	EventID  uint64
	Category schedule.Category
	Date     time.Time
	Time     schedule.TimeOfDay
	AreaIDs  []uint64
}

// Planner creates sessions on the fixed slot grid.
type Planner struct {
	store SessionStore
	cal   *schedule.Calendar
	loc   *time.Location
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewPlanner panics on nil deps.  A nil loc means UTC.
func NewPlanner(store SessionStore, cal *schedule.Calendar, loc *time.Location, log logrus.FieldLogger) *Planner {
	if store == nil || cal == nil {
		panic("booking: nil session store or calendar")
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Planner{store: store, cal: cal, loc: loc, log: log, now: time.Now}
}

// areas returns ids sorted and without duplicates after checking that each
// names an active area.
func (p *Planner) areas(ctx context.Context, ids []uint64) ([]uint64, error) {
	out := slices.Compact(slices.Sorted(slices.Values(ids)))
	inv := seating.NewInventory(p.store)
	for _, id := range out {
		if _, err := inv.Area(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Calendar returns the slot grid the planner schedules on.
func (p *Planner) Calendar() *schedule.Calendar { return p.cal }

func (p *Planner) activeEvent(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := p.store.Event(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.Active {
		return nil, fmt.Errorf("event %d is inactive: %w", id, model.ErrEventNotFound)
	}
	return ev, nil
}

// taken returns the start times already used by the event on date.
func (p *Planner) taken(ctx context.Context, eventID uint64, date time.Time) (map[schedule.TimeOfDay]bool, error) {
	sessions, err := p.store.SessionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	day := schedule.Day(date)
	out := make(map[schedule.TimeOfDay]bool)
	for _, s := range sessions {
		if schedule.Day(s.Date).Equal(day) {
			out[s.Time] = true
		}
	}
	return out, nil
}

// OpenSlots returns, per category, the slots of date that are still in
// the future and not used by the event.
func (p *Planner) OpenSlots(ctx context.Context, eventID uint64, date time.Time) (map[schedule.Category][]schedule.TimeOfDay, error) {
	if _, err := p.activeEvent(ctx, eventID); err != nil {
		return nil, err
	}
	taken, err := p.taken(ctx, eventID, date)
	if err != nil {
		return nil, err
	}
	return p.cal.OpenSlots(date, p.now().In(p.loc), taken), nil
}

// Schedule creates one session after checking that the event is active,
// every area exists and is active, the time is a future slot of the
// category and the event has no session at that date and time yet.
// Repeated area ids are stored once.
func (p *Planner) Schedule(ctx context.Context, ns NewSession) (*model.Session, error) {
	if _, err := p.activeEvent(ctx, ns.EventID); err != nil {
		return nil, err
	}
	areaIDs, err := p.areas(ctx, ns.AreaIDs)
	if err != nil {
		return nil, err
	}
	ns.AreaIDs = areaIDs
	if !p.cal.HasSlot(ns.Category, ns.Time) {
		return nil, fmt.Errorf("%s is not a %s slot: %w", ns.Time, ns.Category, model.ErrInvalidSlot)
	}
	open := false
	for _, tod := range p.cal.AvailableSlots(ns.Category, ns.Date, p.now().In(p.loc)) {
		if tod == ns.Time {
			open = true
			break
		}
	}
	if !open {
		return nil, fmt.Errorf("slot %s %s has already started: %w", ns.Date.Format(time.DateOnly), ns.Time, model.ErrInvalidSlot)
	}
	taken, err := p.taken(ctx, ns.EventID, ns.Date)
	if err != nil {
		return nil, err
	}
	if taken[ns.Time] {
		return nil, fmt.Errorf("event %d at %s %s: %w", ns.EventID, ns.Date.Format(time.DateOnly), ns.Time, model.ErrSessionExists)
	}
	return p.create(ctx, ns)
}

func (p *Planner) create(ctx context.Context, ns NewSession) (*model.Session, error) {
	s, err := p.store.CreateSession(ctx, &model.Session{
		EventID:  ns.EventID,
		Category: ns.Category,
		Date:     schedule.Day(ns.Date),
		Time:     ns.Time,
		Active:   true,
		AreaIDs:  ns.AreaIDs,
	})
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"event_id":   s.EventID,
		"date":       s.Date.Format(time.DateOnly),
		"time":       s.Time.String(),
	}).Info("session scheduled")
	return s, nil
}

// Plan creates a session for every open slot of date that the event does
// not use yet, each offering areaIDs.  Slots claimed concurrently by
// another planner are skipped.  The created sessions are returned in
// chronological order.  Areas are checked before anything is created.
func (p *Planner) Plan(ctx context.Context, eventID uint64, date time.Time, areaIDs []uint64) ([]*model.Session, error) {
	open, err := p.OpenSlots(ctx, eventID, date)
	if err != nil {
		return nil, err
	}
	areaIDs, err = p.areas(ctx, areaIDs)
	if err != nil {
		return nil, err
	}
	created := []*model.Session{}
	for _, cat := range p.cal.Categories() {
		for _, tod := range open[cat] {
			s, err := p.create(ctx, NewSession{EventID: eventID, Category: cat, Date: date, Time: tod, AreaIDs: areaIDs})
			if errors.Is(err, model.ErrSessionExists) {
				continue
			}
			if err != nil {
				return created, err
			}
			created = append(created, s)
		}
	}
	return created, nil
}
