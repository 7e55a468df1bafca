package model

import "errors"

// ErrNotFound is the root of every lookup failure.  Callers can test for
// any missing entity with errors.Is(err, ErrNotFound) and for a specific
// one with its own sentinel.
var ErrNotFound = errors.New("not found")

var (
	ErrEventNotFound   = notFound("event")
	ErrSessionNotFound = notFound("session")
	ErrAreaNotFound    = notFound("area")
	ErrUserNotFound    = notFound("user")
	ErrTicketNotFound  = notFound("ticket")
)

// Business rule violations.  All of them are caller-correctable and never
// indicate a fault in the service.
var (
	ErrSeatOccupied      = errors.New("seat already occupied")
	ErrSessionClosed     = errors.New("session is closed for sales")
	ErrInvalidSeat       = errors.New("seat number out of range")
	ErrInvalidPrice      = errors.New("invalid ticket price")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	ErrSessionExists     = errors.New("session already scheduled for this event, date and time")
	ErrInvalidSlot       = errors.New("time is not a slot of the session category")
)

// ErrTransient marks infrastructure failures that are safe to retry:
// lock acquisition timeouts, deadlocks, unavailable storage.
var ErrTransient = errors.New("transient failure")

// ErrLockTimeout is returned when the per-seat serialising resource could
// not be acquired in time.
var ErrLockTimeout = &wrapped{msg: "seat lock wait timed out", parent: ErrTransient}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

type wrapped struct {
	msg    string
	parent error
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.parent }

func notFound(what string) error {
	return &wrapped{msg: what + " not found", parent: ErrNotFound}
}
