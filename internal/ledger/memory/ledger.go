// Package memory is an in-process ledger.Ledger.  Reads are lock free:
// they go straight to sync.Map indexes holding immutable ticket snapshots.
// Writes to one seat are serialised by a per-key lock; writes to different
// seats proceed in parallel.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/lock"
	"github.com/iliyamo/theatre-ticketing/internal/model"
)

type areaKey struct {
	session uint64
	area    uint64
}

// areaIndex maps seat number -> id of the ticket occupying it.
type areaIndex struct {
	seats sync.Map
}

// Ledger stores tickets in memory.  The zero value is not usable; call New.
type Ledger struct {
	locks lock.Locker

	nextID  atomic.Uint64
	tickets sync.Map // uint64 -> *model.Ticket, replaced on every change
	codes   sync.Map // string -> uint64
	areas   sync.Map // areaKey -> *areaIndex
}

var _ ledger.Ledger = (*Ledger)(nil)

// New returns an empty ledger.  locks serialises writers per seat; a nil
// value selects an in-process lock table with a one second wait.
func New(locks lock.Locker) *Ledger {
	if locks == nil {
		locks = lock.NewKeyed(time.Second)
	}
	return &Ledger{locks: locks}
}

func (l *Ledger) index(session, area uint64) *areaIndex {
	k := areaKey{session, area}
	if v, ok := l.areas.Load(k); ok {
		return v.(*areaIndex)
	}
	v, _ := l.areas.LoadOrStore(k, &areaIndex{})
	return v.(*areaIndex)
}

// peek is index for readers; it never creates an entry.
func (l *Ledger) peek(session, area uint64) *areaIndex {
	if v, ok := l.areas.Load(areaKey{session, area}); ok {
		return v.(*areaIndex)
	}
	return &areaIndex{}
}

func (l *Ledger) load(id uint64) (*model.Ticket, bool) {
	v, ok := l.tickets.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*model.Ticket), true
}

// IsOccupied implements ledger.Reader.
func (l *Ledger) IsOccupied(_ context.Context, key model.SeatKey) (bool, error) {
	_, ok := l.peek(key.SessionID, key.AreaID).seats.Load(key.Seat)
	return ok, nil
}

// OccupiedSeats implements ledger.Reader.
func (l *Ledger) OccupiedSeats(_ context.Context, sessionID, areaID uint64) ([]int, error) {
	out := []int{}
	l.peek(sessionID, areaID).seats.Range(func(k, _ any) bool {
		out = append(out, k.(int))
		return true
	})
	slices.Sort(out)
	return out, nil
}

// Revenue implements ledger.Reader.
func (l *Ledger) Revenue(_ context.Context, sessionID, areaID uint64) (decimal.Decimal, error) {
	sum := decimal.Zero
	l.peek(sessionID, areaID).seats.Range(func(_, v any) bool {
		if t, ok := l.load(v.(uint64)); ok && t.Status.Occupies() {
			sum = sum.Add(t.Price)
		}
		return true
	})
	return sum, nil
}

// Get implements ledger.Reader.
func (l *Ledger) Get(_ context.Context, id uint64) (*model.Ticket, error) {
	t, ok := l.load(id)
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotFound)
	}
	return t.Clone(), nil
}

// GetByCode implements ledger.Reader.
func (l *Ledger) GetByCode(_ context.Context, code string) (*model.Ticket, error) {
	v, ok := l.codes.Load(code)
	if ok {
		if t, ok := l.load(v.(uint64)); ok {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("ticket code %q: %w", code, model.ErrTicketNotFound)
}

func (l *Ledger) filter(keep func(*model.Ticket) bool) []*model.Ticket {
	out := []*model.Ticket{}
	l.tickets.Range(func(_, v any) bool {
		if t := v.(*model.Ticket); keep(t) {
			out = append(out, t.Clone())
		}
		return true
	})
	slices.SortFunc(out, func(a, b *model.Ticket) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// ListBySession implements ledger.Reader.
func (l *Ledger) ListBySession(_ context.Context, sessionID uint64) ([]*model.Ticket, error) {
	return l.filter(func(t *model.Ticket) bool { return t.SessionID == sessionID }), nil
}

// ListByUser implements ledger.Reader.
func (l *Ledger) ListByUser(_ context.Context, userID uint64) ([]*model.Ticket, error) {
	return l.filter(func(t *model.Ticket) bool { return t.UserID == userID }), nil
}

// Reserve implements ledger.Ledger.  Under the seat lock it checks the
// index, stores the ticket and only then publishes the seat, so a reader
// that sees the seat taken can always load its ticket.
func (l *Ledger) Reserve(ctx context.Context, in *model.Ticket) (*model.Ticket, error) {
	key := in.Key()
	release, err := l.locks.Acquire(ctx, key.String())
	if err != nil {
		return nil, err
	}
	defer release()

	idx := l.index(key.SessionID, key.AreaID)
	if _, taken := idx.seats.Load(key.Seat); taken {
		return nil, fmt.Errorf("seat %s: %w", key, model.ErrSeatOccupied)
	}

	t := in.Clone()
	t.ID = l.nextID.Add(1)
	if t.Status == "" {
		t.Status = model.TicketReserved
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.PurchasedAt
	}
	if _, dup := l.codes.LoadOrStore(t.Code, t.ID); dup {
		return nil, fmt.Errorf("code %q: %w", t.Code, ledger.ErrDuplicateCode)
	}
	l.tickets.Store(t.ID, t)
	if t.Status.Occupies() {
		idx.seats.Store(key.Seat, t.ID)
	}
	return t.Clone(), nil
}

// Transition implements ledger.Ledger.
func (l *Ledger) Transition(ctx context.Context, id uint64, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	return l.transition(ctx, id, "", to, at)
}

// TransitionIf implements ledger.Ledger.
func (l *Ledger) TransitionIf(ctx context.Context, id uint64, from, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	return l.transition(ctx, id, from, to, at)
}

func (l *Ledger) transition(ctx context.Context, id uint64, from, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	cur, ok := l.load(id)
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotFound)
	}
	key := cur.Key()
	release, err := l.locks.Acquire(ctx, key.String())
	if err != nil {
		return nil, err
	}
	defer release()

	// reload: another writer may have moved it while we waited
	cur, _ = l.load(id)
	if from != "" && cur.Status != from {
		return nil, fmt.Errorf("ticket %d is %s, expected %s: %w", id, cur.Status, from, ledger.ErrStatusChanged)
	}
	if cur.Status == to {
		return cur.Clone(), nil
	}
	if !cur.Status.CanTransition(to) {
		return nil, fmt.Errorf("ticket %d %s -> %s: %w", id, cur.Status, to, model.ErrInvalidTransition)
	}
	next := cur.Clone()
	next.Status = to
	next.UpdatedAt = at
	l.tickets.Store(id, next)
	if !to.Occupies() {
		l.index(key.SessionID, key.AreaID).seats.CompareAndDelete(key.Seat, id)
	}
	return next.Clone(), nil
}

// ExpiredReservations implements ledger.Ledger.
func (l *Ledger) ExpiredReservations(_ context.Context, before time.Time) ([]uint64, error) {
	ids := []uint64{}
	for _, t := range l.filter(func(t *model.Ticket) bool {
		return t.Status == model.TicketReserved && t.PurchasedAt.Before(before)
	}) {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// Len returns the number of tickets stored, cancelled ones included.
func (l *Ledger) Len() int {
	n := 0
	l.tickets.Range(func(_, _ any) bool { n++; return true })
	return n
}
