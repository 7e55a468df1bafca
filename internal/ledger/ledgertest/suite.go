// Package ledgertest holds behaviour tests shared by every ledger.Ledger
// implementation.  An implementation's own test file calls Run with a
// constructor returning an empty ledger.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/model"
)

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// Ticket builds an unsaved ticket for seat n of session 1, area 1.
func Ticket(user uint64, seat int, code string) *model.Ticket {
	return &model.Ticket{
		UserID:      user,
		SessionID:   1,
		AreaID:      1,
		SeatNumber:  seat,
		Price:       decimal.RequireFromString("50.00"),
		Code:        code,
		PurchasedAt: base,
	}
}

// Run executes the shared suite.
func Run(t *testing.T, newLedger func(t *testing.T) ledger.Ledger) {
	t.Run("ReserveThenRead", func(t *testing.T) { reserveThenRead(t, newLedger(t)) })
	t.Run("ReserveTakenSeat", func(t *testing.T) { reserveTakenSeat(t, newLedger(t)) })
	t.Run("DuplicateCode", func(t *testing.T) { duplicateCode(t, newLedger(t)) })
	t.Run("CancelFreesSeat", func(t *testing.T) { cancelFreesSeat(t, newLedger(t)) })
	t.Run("CancelIsIdempotent", func(t *testing.T) { cancelIsIdempotent(t, newLedger(t)) })
	t.Run("Transitions", func(t *testing.T) { transitions(t, newLedger(t)) })
	t.Run("TransitionIf", func(t *testing.T) { transitionIf(t, newLedger(t)) })
	t.Run("Unknown", func(t *testing.T) { unknown(t, newLedger(t)) })
	t.Run("Lists", func(t *testing.T) { lists(t, newLedger(t)) })
	t.Run("ExpiredReservations", func(t *testing.T) { expired(t, newLedger(t)) })
	t.Run("ConcurrentSameSeat", func(t *testing.T) { concurrentSameSeat(t, newLedger(t)) })
	t.Run("ConcurrentDistinctSeats", func(t *testing.T) { concurrentDistinctSeats(t, newLedger(t)) })
}

func reserveThenRead(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	got, err := l.Reserve(ctx, Ticket(7, 3, "TKT-A"))
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, model.TicketReserved, got.Status)

	ok, err := l.IsOccupied(ctx, model.SeatKey{SessionID: 1, AreaID: 1, Seat: 3})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.IsOccupied(ctx, model.SeatKey{SessionID: 1, AreaID: 2, Seat: 3})
	require.NoError(t, err)
	assert.False(t, ok)

	byID, err := l.Get(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "TKT-A", byID.Code)

	byCode, err := l.GetByCode(ctx, "TKT-A")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byCode.ID)

	rev, err := l.Revenue(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(rev), rev.String())
}

func reserveTakenSeat(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Reserve(ctx, Ticket(1, 5, "TKT-1"))
	require.NoError(t, err)

	_, err = l.Reserve(ctx, Ticket(2, 5, "TKT-2"))
	require.ErrorIs(t, err, model.ErrSeatOccupied)

	// the loser left nothing behind
	_, err = l.GetByCode(ctx, "TKT-2")
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
	list, err := l.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func duplicateCode(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Reserve(ctx, Ticket(1, 1, "TKT-SAME"))
	require.NoError(t, err)
	_, err = l.Reserve(ctx, Ticket(1, 2, "TKT-SAME"))
	require.ErrorIs(t, err, ledger.ErrDuplicateCode)

	ok, err := l.IsOccupied(ctx, model.SeatKey{SessionID: 1, AreaID: 1, Seat: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func cancelFreesSeat(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	tk, err := l.Reserve(ctx, Ticket(1, 9, "TKT-X"))
	require.NoError(t, err)

	got, err := l.Transition(ctx, tk.ID, model.TicketCancelled, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, got.Status)
	assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)

	seats, err := l.OccupiedSeats(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, seats)
	rev, err := l.Revenue(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, rev.IsZero())

	again, err := l.Reserve(ctx, Ticket(2, 9, "TKT-Y"))
	require.NoError(t, err)
	assert.NotEqual(t, tk.ID, again.ID)

	// the cancelled ticket stays readable
	old, err := l.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, old.Status)
}

func cancelIsIdempotent(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	tk, err := l.Reserve(ctx, Ticket(1, 4, "TKT-I"))
	require.NoError(t, err)

	first, err := l.Transition(ctx, tk.ID, model.TicketCancelled, base)
	require.NoError(t, err)
	second, err := l.Transition(ctx, tk.ID, model.TicketCancelled, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func transitions(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	tk, err := l.Reserve(ctx, Ticket(1, 2, "TKT-T"))
	require.NoError(t, err)

	paid, err := l.Transition(ctx, tk.ID, model.TicketPaid, base)
	require.NoError(t, err)
	assert.Equal(t, model.TicketPaid, paid.Status)

	_, err = l.Transition(ctx, tk.ID, model.TicketReserved, base)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	used, err := l.Transition(ctx, tk.ID, model.TicketUtilized, base)
	require.NoError(t, err)
	assert.Equal(t, model.TicketUtilized, used.Status)

	_, err = l.Transition(ctx, tk.ID, model.TicketCancelled, base)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	ok, err := l.IsOccupied(ctx, tk.Key())
	require.NoError(t, err)
	assert.True(t, ok, "utilized tickets keep their seat")
}

func transitionIf(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	tk, err := l.Reserve(ctx, Ticket(1, 6, "TKT-G"))
	require.NoError(t, err)
	_, err = l.Transition(ctx, tk.ID, model.TicketPaid, base)
	require.NoError(t, err)

	_, err = l.TransitionIf(ctx, tk.ID, model.TicketReserved, model.TicketCancelled, base)
	require.ErrorIs(t, err, ledger.ErrStatusChanged)
	got, err := l.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketPaid, got.Status)

	got, err = l.TransitionIf(ctx, tk.ID, model.TicketPaid, model.TicketCancelled, base)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, got.Status)
}

func unknown(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = l.GetByCode(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
	_, err = l.Transition(ctx, 999, model.TicketCancelled, base)
	assert.ErrorIs(t, err, model.ErrTicketNotFound)

	seats, err := l.OccupiedSeats(ctx, 42, 42)
	require.NoError(t, err)
	assert.NotNil(t, seats)
	assert.Empty(t, seats)
}

func lists(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	a, err := l.Reserve(ctx, Ticket(1, 8, "TKT-L1"))
	require.NoError(t, err)
	b, err := l.Reserve(ctx, Ticket(2, 2, "TKT-L2"))
	require.NoError(t, err)
	other := Ticket(1, 8, "TKT-L3")
	other.SessionID = 2
	c, err := l.Reserve(ctx, other)
	require.NoError(t, err)

	bySession, err := l.ListBySession(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, a.ID, bySession[0].ID)
	assert.Equal(t, b.ID, bySession[1].ID)

	byUser, err := l.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, a.ID, byUser[0].ID)
	assert.Equal(t, c.ID, byUser[1].ID)

	seats, err := l.OccupiedSeats(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8}, seats)
}

func expired(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	old := Ticket(1, 1, "TKT-OLD")
	old.PurchasedAt = base.Add(-time.Hour)
	o, err := l.Reserve(ctx, old)
	require.NoError(t, err)

	paid := Ticket(1, 2, "TKT-PAID")
	paid.PurchasedAt = base.Add(-time.Hour)
	p, err := l.Reserve(ctx, paid)
	require.NoError(t, err)
	_, err = l.Transition(ctx, p.ID, model.TicketPaid, base)
	require.NoError(t, err)

	_, err = l.Reserve(ctx, Ticket(1, 3, "TKT-NEW"))
	require.NoError(t, err)

	ids, err := l.ExpiredReservations(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []uint64{o.ID}, ids)
}

func concurrentSameSeat(t *testing.T, l ledger.Ledger) {
	const n = 64
	ctx := context.Background()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		occupied int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := l.Reserve(ctx, Ticket(uint64(i+1), 11, fmt.Sprintf("TKT-C%02d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, model.ErrSeatOccupied):
				occupied++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, occupied)
	list, err := l.ListBySession(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func concurrentDistinctSeats(t *testing.T, l ledger.Ledger) {
	const n = 40
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			_, err := l.Reserve(ctx, Ticket(1, seat, fmt.Sprintf("TKT-D%02d", seat)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seats, err := l.OccupiedSeats(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, seats, n)
	for i, s := range seats {
		assert.Equal(t, i+1, s)
	}
	rev, err := l.Revenue(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50*n).Equal(rev), rev.String())
}
