// Package stats derives availability, occupancy and revenue views from the
// occupancy ledger.  Every figure is a snapshot: areas and sessions are
// read one after another, so a rollup taken during sales is not atomic
// across them.
package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/seating"
)

// Catalog resolves the entities a rollup walks through.
type Catalog interface {
	Event(ctx context.Context, id uint64) (*model.Event, error)
	Session(ctx context.Context, id uint64) (*model.Session, error)
	SessionsByEvent(ctx context.Context, eventID uint64) ([]*model.Session, error)
	Area(ctx context.Context, id uint64) (*model.Area, error)
}

// AreaStats is the occupancy of one area of one session, or a sum of
// several.  Available is always Capacity - Occupied.
type AreaStats struct {
	AreaID    uint64          `json:"area_id,omitempty"`
	Capacity  int             `json:"capacity"`
	Occupied  int             `json:"occupied"`
	Available int             `json:"available"`
	Percent   float64         `json:"percent"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func (a *AreaStats) add(o AreaStats) {
	a.Capacity += o.Capacity
	a.Occupied += o.Occupied
	a.Revenue = a.Revenue.Add(o.Revenue)
	a.finish()
}

func (a *AreaStats) finish() {
	a.Available = a.Capacity - a.Occupied
	a.Percent = Percent(a.Occupied, a.Capacity)
}

// SessionStats breaks a session down by area.
type SessionStats struct {
	SessionID uint64      `json:"session_id"`
	Areas     []AreaStats `json:"areas"`
	Total     AreaStats   `json:"total"`
}

// EventStats breaks an event down by session.
type EventStats struct {
	EventID  uint64         `json:"event_id"`
	Sessions []SessionStats `json:"sessions"`
	Total    AreaStats      `json:"total"`
}

// Percent returns occupied/capacity*100, or 0 for an empty area.
func Percent(occupied, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(occupied) * 100 / float64(capacity)
}

// Engine computes the views.  It only reads; it never takes the writer
// locks of the ledger.
type Engine struct {
	catalog Catalog
	inv     *seating.Inventory
	ledger  ledger.Reader
}

// NewEngine panics on nil deps.
func NewEngine(c Catalog, l ledger.Reader) *Engine {
	if c == nil || l == nil {
		panic("stats: nil catalog or ledger")
	}
	return &Engine{catalog: c, inv: seating.NewInventory(c), ledger: l}
}

// sessionArea loads the session and checks it offers the area.
func (e *Engine) sessionArea(ctx context.Context, sessionID, areaID uint64) (*model.Session, error) {
	sess, err := e.catalog.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.OffersArea(areaID) {
		return nil, fmt.Errorf("area %d is not offered by session %d: %w", areaID, sessionID, model.ErrAreaNotFound)
	}
	return sess, nil
}

// AvailableSeats lists the free seat numbers of a sellable area, ascending.
// Inactive areas are reported as not found.
func (e *Engine) AvailableSeats(ctx context.Context, sessionID, areaID uint64) ([]int, error) {
	if _, err := e.sessionArea(ctx, sessionID, areaID); err != nil {
		return nil, err
	}
	area, err := e.inv.Area(ctx, areaID)
	if err != nil {
		return nil, err
	}
	occupied, err := e.ledger.OccupiedSeats(ctx, sessionID, areaID)
	if err != nil {
		return nil, err
	}
	return seating.Available(area, occupied), nil
}

// Occupancy reports one area of one session.
func (e *Engine) Occupancy(ctx context.Context, sessionID, areaID uint64) (AreaStats, error) {
	if _, err := e.sessionArea(ctx, sessionID, areaID); err != nil {
		return AreaStats{}, err
	}
	return e.occupancy(ctx, sessionID, areaID)
}

func (e *Engine) occupancy(ctx context.Context, sessionID, areaID uint64) (AreaStats, error) {
	area, err := e.catalog.Area(ctx, areaID)
	if err != nil {
		return AreaStats{}, err
	}
	occupied, err := e.ledger.OccupiedSeats(ctx, sessionID, areaID)
	if err != nil {
		return AreaStats{}, err
	}
	revenue, err := e.ledger.Revenue(ctx, sessionID, areaID)
	if err != nil {
		return AreaStats{}, err
	}
	st := AreaStats{AreaID: area.ID, Capacity: area.Capacity, Occupied: len(occupied), Revenue: revenue}
	st.finish()
	return st, nil
}

// SessionRollup sums the session's areas.
func (e *Engine) SessionRollup(ctx context.Context, sessionID uint64) (SessionStats, error) {
	sess, err := e.catalog.Session(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	return e.rollup(ctx, sess)
}

func (e *Engine) rollup(ctx context.Context, sess *model.Session) (SessionStats, error) {
	out := SessionStats{SessionID: sess.ID, Areas: make([]AreaStats, 0, len(sess.AreaIDs))}
	for _, id := range sess.AreaIDs {
		st, err := e.occupancy(ctx, sess.ID, id)
		if err != nil {
			return SessionStats{}, err
		}
		out.Areas = append(out.Areas, st)
		out.Total.add(st)
	}
	return out, nil
}

// EventRollup sums every session of the event.
func (e *Engine) EventRollup(ctx context.Context, eventID uint64) (EventStats, error) {
	if _, err := e.catalog.Event(ctx, eventID); err != nil {
		return EventStats{}, err
	}
	sessions, err := e.catalog.SessionsByEvent(ctx, eventID)
	if err != nil {
		return EventStats{}, err
	}
	out := EventStats{EventID: eventID, Sessions: make([]SessionStats, 0, len(sessions))}
	for _, sess := range sessions {
		st, err := e.rollup(ctx, sess)
		if err != nil {
			return EventStats{}, err
		}
		out.Sessions = append(out.Sessions, st)
		out.Total.add(st.Total)
	}
	return out, nil
}
