package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
)

// MemoryCatalog is an in-process Catalog used with the memory ledger and
// in tests.  Entities are copied in and out, so callers never share
// state with the store.
type MemoryCatalog struct {
	mu       sync.RWMutex
	events   map[uint64]model.Event
	sessions map[uint64]model.Session
	areas    map[uint64]model.Area
	users    map[uint64]model.User
	nextID   uint64
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		events:   map[uint64]model.Event{},
		sessions: map[uint64]model.Session{},
		areas:    map[uint64]model.Area{},
		users:    map[uint64]model.User{},
	}
}

func (c *MemoryCatalog) id(want uint64) uint64 {
	if want != 0 {
		c.nextID = max(c.nextID, want)
		return want
	}
	c.nextID++
	return c.nextID
}

// PutEvent stores e, assigning an id when e.ID is zero.
func (c *MemoryCatalog) PutEvent(e model.Event) model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.ID = c.id(e.ID)
	c.events[e.ID] = e
	return e
}

// PutArea stores a, assigning an id when a.ID is zero.
func (c *MemoryCatalog) PutArea(a model.Area) model.Area {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.ID = c.id(a.ID)
	c.areas[a.ID] = a
	return a
}

// PutUser stores u, assigning an id when u.ID is zero.
func (c *MemoryCatalog) PutUser(u model.User) model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	u.ID = c.id(u.ID)
	c.users[u.ID] = u
	return u
}

// PutSession stores s without the uniqueness check of CreateSession.
func (c *MemoryCatalog) PutSession(s model.Session) model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.ID = c.id(s.ID)
	s.Date = schedule.Day(s.Date)
	s.AreaIDs = slices.Clone(s.AreaIDs)
	c.sessions[s.ID] = s
	return s
}

// Event implements booking.Directory.
func (c *MemoryCatalog) Event(_ context.Context, id uint64) (*model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.events[id]
	if !ok {
		return nil, fmt.Errorf("event %d: %w", id, model.ErrEventNotFound)
	}
	return &e, nil
}

// Session implements booking.Directory.
func (c *MemoryCatalog) Session(_ context.Context, id uint64) (*model.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrSessionNotFound)
	}
	s.AreaIDs = slices.Clone(s.AreaIDs)
	return &s, nil
}

// Area implements booking.Directory.
func (c *MemoryCatalog) Area(_ context.Context, id uint64) (*model.Area, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.areas[id]
	if !ok {
		return nil, fmt.Errorf("area %d: %w", id, model.ErrAreaNotFound)
	}
	return &a, nil
}

// User implements booking.Directory.
func (c *MemoryCatalog) User(_ context.Context, id uint64) (*model.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return &u, nil
}

// SessionsByEvent implements booking.SessionStore.
func (c *MemoryCatalog) SessionsByEvent(_ context.Context, eventID uint64) ([]*model.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []*model.Session{}
	for _, s := range c.sessions {
		if s.EventID == eventID {
			s.AreaIDs = slices.Clone(s.AreaIDs)
			out = append(out, &s)
		}
	}
	slices.SortFunc(out, func(a, b *model.Session) int {
		if d := a.Date.Compare(b.Date); d != 0 {
			return d
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out, nil
}

// CreateSession implements booking.SessionStore.
func (c *MemoryCatalog) CreateSession(_ context.Context, in *model.Session) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	day := schedule.Day(in.Date)
	for _, s := range c.sessions {
		if s.EventID == in.EventID && s.Date.Equal(day) && s.Time == in.Time {
			return nil, fmt.Errorf("event %d at %s %s: %w", in.EventID, day.Format("2006-01-02"), in.Time, model.ErrSessionExists)
		}
	}
	s := *in
	s.ID = c.id(0)
	s.Date = day
	s.AreaIDs = slices.Clone(in.AreaIDs)
	c.sessions[s.ID] = s
	out := s
	out.AreaIDs = slices.Clone(s.AreaIDs)
	return &out, nil
}

// ListEvents mirrors EventRepo.ListEvents.
func (c *MemoryCatalog) ListEvents(_ context.Context, activeOnly bool) ([]*model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []*model.Event{}
	for _, e := range c.events {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, &e)
	}
	slices.SortFunc(out, func(a, b *model.Event) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// CreateEvent mirrors EventRepo.CreateEvent.
func (c *MemoryCatalog) CreateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := *e
	out.ID = c.id(0)
	c.events[out.ID] = out
	return &out, nil
}

// UpdateEvent mirrors EventRepo.UpdateEvent.
func (c *MemoryCatalog) UpdateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[e.ID]; !ok {
		return nil, fmt.Errorf("event %d: %w", e.ID, model.ErrEventNotFound)
	}
	c.events[e.ID] = *e
	out := *e
	return &out, nil
}

// ListAreas mirrors AreaRepo.ListAreas.
func (c *MemoryCatalog) ListAreas(context.Context) ([]*model.Area, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []*model.Area{}
	for _, a := range c.areas {
		out = append(out, &a)
	}
	slices.SortFunc(out, func(a, b *model.Area) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// CreateArea mirrors AreaRepo.CreateArea.
func (c *MemoryCatalog) CreateArea(_ context.Context, a *model.Area) (*model.Area, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := *a
	out.ID = c.id(0)
	c.areas[out.ID] = out
	return &out, nil
}

// UpdateArea mirrors AreaRepo.UpdateArea; the stored capacity is kept.
func (c *MemoryCatalog) UpdateArea(_ context.Context, a *model.Area) (*model.Area, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.areas[a.ID]
	if !ok {
		return nil, fmt.Errorf("area %d: %w", a.ID, model.ErrAreaNotFound)
	}
	cur.Name, cur.Price, cur.Active = a.Name, a.Price, a.Active
	c.areas[a.ID] = cur
	return &cur, nil
}
