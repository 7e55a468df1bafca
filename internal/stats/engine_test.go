package stats

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-ticketing/internal/ledger/memory"
	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/repository"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
)

type world struct {
	cat    *repository.MemoryCatalog
	ledger *memory.Ledger
	engine *Engine
	event  model.Event
	small  model.Area
	big    model.Area
	s1, s2 model.Session
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{cat: repository.NewMemoryCatalog(), ledger: memory.New(nil)}
	w.event = w.cat.PutEvent(model.Event{Name: "Hamlet", DurationMin: 120, Active: true})
	w.small = w.cat.PutArea(model.Area{Name: "Camarote", Capacity: 3, Price: decimal.RequireFromString("100"), Active: true})
	w.big = w.cat.PutArea(model.Area{Name: "Plateia", Capacity: 10, Price: decimal.RequireFromString("40"), Active: true})
	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	w.s1 = w.cat.PutSession(model.Session{EventID: w.event.ID, Category: schedule.Evening, Date: day,
		Time: schedule.MustParseTimeOfDay("19:30"), Active: true, AreaIDs: []uint64{w.small.ID, w.big.ID}})
	w.s2 = w.cat.PutSession(model.Session{EventID: w.event.ID, Category: schedule.Evening, Date: day,
		Time: schedule.MustParseTimeOfDay("21:00"), Active: true, AreaIDs: []uint64{w.big.ID}})
	w.engine = NewEngine(w.cat, w.ledger)
	return w
}

func (w *world) sell(t *testing.T, sess model.Session, area model.Area, seat int, price string) *model.Ticket {
	t.Helper()
	tk, err := w.ledger.Reserve(context.Background(), &model.Ticket{
		UserID: 1, SessionID: sess.ID, AreaID: area.ID, SeatNumber: seat,
		Price: decimal.RequireFromString(price), Code: "C" + sess.Time.String() + area.Name + string(rune('a'+seat)),
		Status: model.TicketReserved, PurchasedAt: time.Now(),
	})
	require.NoError(t, err)
	return tk
}

func TestAvailableSeats(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	seats, err := w.engine.AvailableSeats(ctx, w.s1.ID, w.small.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seats)

	tk := w.sell(t, w.s1, w.small, 2, "100")
	seats, err = w.engine.AvailableSeats(ctx, w.s1.ID, w.small.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, seats)

	st, err := w.engine.Occupancy(ctx, w.s1.ID, w.small.ID)
	require.NoError(t, err)
	assert.InDelta(t, 33.3, st.Percent, 0.05)

	_, err = w.ledger.Transition(ctx, tk.ID, model.TicketCancelled, time.Now())
	require.NoError(t, err)
	seats, err = w.engine.AvailableSeats(ctx, w.s1.ID, w.small.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seats)
}

func TestAvailableSeats_Errors(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.engine.AvailableSeats(ctx, 999, w.small.ID)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	_, err = w.engine.AvailableSeats(ctx, w.s2.ID, w.small.ID)
	assert.ErrorIs(t, err, model.ErrAreaNotFound)

	w.small.Active = false
	w.cat.PutArea(w.small)
	_, err = w.engine.AvailableSeats(ctx, w.s1.ID, w.small.ID)
	assert.ErrorIs(t, err, model.ErrAreaNotFound)
}

func TestOccupancy(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	st, err := w.engine.Occupancy(ctx, w.s1.ID, w.big.ID)
	require.NoError(t, err)
	assert.Equal(t, w.big.ID, st.AreaID)
	assert.Equal(t, 10, st.Capacity)
	assert.Equal(t, 10, st.Available)
	assert.Zero(t, st.Percent)
	assert.True(t, st.Revenue.IsZero())

	w.sell(t, w.s1, w.big, 1, "40")
	w.sell(t, w.s1, w.big, 10, "35.50")
	cancelled := w.sell(t, w.s1, w.big, 5, "40")
	_, err = w.ledger.Transition(ctx, cancelled.ID, model.TicketCancelled, time.Now())
	require.NoError(t, err)

	st, err = w.engine.Occupancy(ctx, w.s1.ID, w.big.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Occupied)
	assert.Equal(t, 8, st.Available)
	assert.Equal(t, st.Capacity, st.Occupied+st.Available)
	assert.InDelta(t, 20.0, st.Percent, 1e-9)
	assert.Equal(t, "75.5", st.Revenue.String())
}

func TestOccupancy_AvailablePlusOccupiedIsCapacity(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	for seat := 1; seat <= w.big.Capacity; seat++ {
		w.sell(t, w.s2, w.big, seat, "40")
		st, err := w.engine.Occupancy(ctx, w.s2.ID, w.big.ID)
		require.NoError(t, err)
		assert.Equal(t, w.big.Capacity, st.Available+st.Occupied)

		seats, err := w.engine.AvailableSeats(ctx, w.s2.ID, w.big.ID)
		require.NoError(t, err)
		assert.Len(t, seats, st.Available)
	}
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(0, 0))
	assert.Zero(t, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 100.0, Percent(7, 7))
}

func TestRollups(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.sell(t, w.s1, w.small, 1, "100")
	w.sell(t, w.s1, w.big, 3, "40")
	w.sell(t, w.s2, w.big, 3, "40")
	w.sell(t, w.s2, w.big, 4, "40")

	s1, err := w.engine.SessionRollup(ctx, w.s1.ID)
	require.NoError(t, err)
	require.Len(t, s1.Areas, 2)
	assert.Equal(t, 13, s1.Total.Capacity)
	assert.Equal(t, 2, s1.Total.Occupied)
	assert.Equal(t, 11, s1.Total.Available)
	assert.Equal(t, "140", s1.Total.Revenue.String())

	ev, err := w.engine.EventRollup(ctx, w.event.ID)
	require.NoError(t, err)
	require.Len(t, ev.Sessions, 2)
	assert.Equal(t, 23, ev.Total.Capacity)
	assert.Equal(t, 4, ev.Total.Occupied)
	assert.Equal(t, "220", ev.Total.Revenue.String())
	assert.InDelta(t, 400.0/23, ev.Total.Percent, 1e-9)

	_, err = w.engine.EventRollup(ctx, 999)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
	_, err = w.engine.SessionRollup(ctx, 999)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestEventRollup_NoSessions(t *testing.T) {
	w := newWorld(t)
	idle := w.cat.PutEvent(model.Event{Name: "Premiere", Active: true})

	ev, err := w.engine.EventRollup(context.Background(), idle.ID)
	require.NoError(t, err)
	assert.NotNil(t, ev.Sessions)
	assert.Empty(t, ev.Sessions)
	assert.Zero(t, ev.Total.Percent)
}
