package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketReserved  TicketStatus = "RESERVED"
	TicketPaid      TicketStatus = "PAID"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketUtilized  TicketStatus = "UTILIZED"
)

// transitions lists the allowed moves.  CANCELLED and UTILIZED are terminal.
var transitions = map[TicketStatus][]TicketStatus{
	TicketReserved: {TicketPaid, TicketCancelled, TicketUtilized},
	TicketPaid:     {TicketUtilized, TicketCancelled},
}

// Occupies reports whether a ticket in this status holds its seat.  Every
// status except CANCELLED does.
func (s TicketStatus) Occupies() bool { return s != TicketCancelled }

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketReserved, TicketPaid, TicketCancelled, TicketUtilized:
		return true
	}
	return false
}

// CanTransition reports whether a ticket may move from s to to.
func (s TicketStatus) CanTransition(to TicketStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// SeatKey identifies one sellable seat of one session.  It is the index
// key of the occupancy ledger.
type SeatKey struct {
	SessionID uint64
	AreaID    uint64
	Seat      int
}

// String renders the key as "session:area:seat"; also used as lock name.
func (k SeatKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.SessionID, k.AreaID, k.Seat)
}

// Ticket is the occupancy record binding a user to a seat of a session.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – ticket holder.
//  SessionID   – session the seat belongs to.
//  AreaID      – pricing area of the seat.
//  SeatNumber  – 1..area capacity.
//  Price       – amount paid for this seat.
//  Code        – unique code printed on the ticket.
//  Status      – RESERVED, PAID, CANCELLED or UTILIZED.
//  PurchasedAt – when the seat was taken.
//  UpdatedAt   – last status change.
type Ticket struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	SessionID   uint64          `json:"session_id"`
	AreaID      uint64          `json:"area_id"`
	SeatNumber  int             `json:"seat_number"`
	Price       decimal.Decimal `json:"price"`
	Code        string          `json:"code"`
	Status      TicketStatus    `json:"status"`
	PurchasedAt time.Time       `json:"purchased_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Key returns the ledger key of the ticket's seat.
func (t *Ticket) Key() SeatKey {
	return SeatKey{SessionID: t.SessionID, AreaID: t.AreaID, Seat: t.SeatNumber}
}

// Clone returns a copy safe to hand out while the original stays in a store.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	return &cp
}
