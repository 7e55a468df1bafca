// Package queue carries ticket lifecycle events over RabbitMQ.  The
// booking service publishes one TicketEvent per state change; the consumer
// appends them to an audit log file.
package queue

import (
	"time"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// TicketQueue is the durable queue every ticket event goes to.
const TicketQueue = "ticket.events"

// Event types.
const (
	TicketReserved  = "ticket.reserved"
	TicketPaid      = "ticket.paid"
	TicketCancelled = "ticket.cancelled"
	TicketUtilized  = "ticket.utilized"
	TicketExpired   = "ticket.expired"
)

// TicketEvent is the message body.  It holds enough of the ticket for
// downstream consumers to log or notify without reading the database.
type TicketEvent struct {
	Type       string `json:"type"`
	TicketID   uint64 `json:"ticket_id"`
	UserID     uint64 `json:"user_id"`
	SessionID  uint64 `json:"session_id"`
	AreaID     uint64 `json:"area_id"`
	SeatNumber int    `json:"seat_number"`
	Code       string `json:"code"`
	Price      string `json:"price"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}

// NewTicketEvent builds an event of the given type from a ticket snapshot.
func NewTicketEvent(typ string, t *model.Ticket, at time.Time) TicketEvent {
	return TicketEvent{
		Type:       typ,
		TicketID:   t.ID,
		UserID:     t.UserID,
		SessionID:  t.SessionID,
		AreaID:     t.AreaID,
		SeatNumber: t.SeatNumber,
		Code:       t.Code,
		Price:      t.Price.StringFixed(2),
		Status:     string(t.Status),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

// EventFor maps a target status to its event type.
func EventFor(status model.TicketStatus) string {
	switch status {
	case model.TicketPaid:
		return TicketPaid
	case model.TicketCancelled:
		return TicketCancelled
	case model.TicketUtilized:
		return TicketUtilized
	}
	return TicketReserved
}
