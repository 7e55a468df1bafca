// Package ledger defines the occupancy ledger: the authoritative record of
// which seats of which sessions are taken.  Implementations live in the
// memory and mysql subpackages; both guarantee that at most one ticket
// with a status other than CANCELLED exists per model.SeatKey.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// ErrDuplicateCode is returned by Reserve when the ticket code is already
// in use.  Nothing is written; the caller picks a new code and retries.
var ErrDuplicateCode = errors.New("ticket code already in use")

// ErrStatusChanged is returned by TransitionIf when the ticket moved away
// from the expected status before the change could be applied.
var ErrStatusChanged = errors.New("ticket status changed concurrently")

// Reader is the read side of the ledger.  Reads never block writers and
// observe every write that returned before the read started.
type Reader interface {
	// IsOccupied reports whether a non-cancelled ticket holds key.
	IsOccupied(ctx context.Context, key model.SeatKey) (bool, error)
	// OccupiedSeats returns the taken seat numbers of one area of a
	// session in ascending order.
	OccupiedSeats(ctx context.Context, sessionID, areaID uint64) ([]int, error)
	// Revenue sums the prices of the non-cancelled tickets of one area of
	// a session.  Zero when there are none.
	Revenue(ctx context.Context, sessionID, areaID uint64) (decimal.Decimal, error)

	Get(ctx context.Context, id uint64) (*model.Ticket, error)
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
	ListBySession(ctx context.Context, sessionID uint64) ([]*model.Ticket, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Ticket, error)
}

// Ledger adds the write operations.
type Ledger interface {
	Reader

	// Reserve inserts t if and only if its seat is free, as one
	// indivisible step.  The ledger assigns ID and UpdatedAt and defaults
	// Status to RESERVED.  A taken seat yields model.ErrSeatOccupied and
	// nothing is written.
	Reserve(ctx context.Context, t *model.Ticket) (*model.Ticket, error)

	// Transition moves ticket id to status to.  Moving to the current
	// status is a no-op that returns the ticket.  Moves not allowed by
	// model.TicketStatus.CanTransition yield model.ErrInvalidTransition.
	// Cancelling frees the seat in the same step.
	Transition(ctx context.Context, id uint64, to model.TicketStatus, at time.Time) (*model.Ticket, error)

	// TransitionIf is Transition guarded by the current status: when the
	// ticket is not in status from, nothing changes and the error matches
	// ErrStatusChanged.
	TransitionIf(ctx context.Context, id uint64, from, to model.TicketStatus, at time.Time) (*model.Ticket, error)

	// ExpiredReservations returns the ids of RESERVED tickets purchased
	// strictly before the given instant.
	ExpiredReservations(ctx context.Context, before time.Time) ([]uint64, error)
}
