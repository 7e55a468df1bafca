// Package mysql is the ledger.Ledger backed by the tickets table.  Seat
// uniqueness is enforced by the uq_tickets_seat index over a generated
// column that is NULL for cancelled rows, so the check and the insert are
// a single INSERT statement and no application lock is needed.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/model"
)

const ticketColumns = `id, user_id, session_id, area_id, seat_number, price, code, status, purchased_at, updated_at`

// Ledger implements ledger.Ledger on MySQL.
type Ledger struct {
	db *sql.DB
}

var _ ledger.Ledger = (*Ledger)(nil)

// New panics on a nil db.
func New(db *sql.DB) *Ledger {
	if db == nil {
		panic("mysql ledger: nil db")
	}
	return &Ledger{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (*model.Ticket, error) {
	var (
		t      model.Ticket
		status string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.SessionID, &t.AreaID, &t.SeatNumber,
		&t.Price, &t.Code, &status, &t.PurchasedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TicketStatus(status)
	return &t, nil
}

func (l *Ledger) list(ctx context.Context, q string, args ...any) ([]*model.Ticket, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, classify(rows.Err())
}

// IsOccupied implements ledger.Reader.
func (l *Ledger) IsOccupied(ctx context.Context, key model.SeatKey) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM tickets
	           WHERE session_id = ? AND area_id = ? AND seat_number = ? AND status <> 'CANCELLED')`
	var ok bool
	if err := l.db.QueryRowContext(ctx, q, key.SessionID, key.AreaID, key.Seat).Scan(&ok); err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// OccupiedSeats implements ledger.Reader.
func (l *Ledger) OccupiedSeats(ctx context.Context, sessionID, areaID uint64) ([]int, error) {
	const q = `SELECT seat_number FROM tickets
	           WHERE session_id = ? AND area_id = ? AND status <> 'CANCELLED'
	           ORDER BY seat_number`
	rows, err := l.db.QueryContext(ctx, q, sessionID, areaID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, classify(rows.Err())
}

// Revenue implements ledger.Reader.
func (l *Ledger) Revenue(ctx context.Context, sessionID, areaID uint64) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(price), 0) FROM tickets
	           WHERE session_id = ? AND area_id = ? AND status <> 'CANCELLED'`
	var sum decimal.Decimal
	if err := l.db.QueryRowContext(ctx, q, sessionID, areaID).Scan(&sum); err != nil {
		return decimal.Zero, classify(err)
	}
	return sum, nil
}

// Get implements ledger.Reader.
func (l *Ledger) Get(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := scanTicket(l.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// GetByCode implements ledger.Reader.
func (l *Ledger) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := scanTicket(l.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket code %q: %w", code, model.ErrTicketNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// ListBySession implements ledger.Reader.
func (l *Ledger) ListBySession(ctx context.Context, sessionID uint64) ([]*model.Ticket, error) {
	return l.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE session_id = ? ORDER BY id`, sessionID)
}

// ListByUser implements ledger.Reader.
func (l *Ledger) ListByUser(ctx context.Context, userID uint64) ([]*model.Ticket, error) {
	return l.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? ORDER BY id`, userID)
}

// Reserve implements ledger.Ledger.  The INSERT either passes the unique
// seat index or fails with 1062; there is no window between check and
// write.
func (l *Ledger) Reserve(ctx context.Context, in *model.Ticket) (*model.Ticket, error) {
	t := in.Clone()
	if t.Status == "" {
		t.Status = model.TicketReserved
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.PurchasedAt
	}
	const q = `INSERT INTO tickets
	           (user_id, session_id, area_id, seat_number, price, code, status, purchased_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := l.db.ExecContext(ctx, q, t.UserID, t.SessionID, t.AreaID, t.SeatNumber,
		t.Price, t.Code, string(t.Status), t.PurchasedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return nil, classifyInsert(err, t)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	t.ID = uint64(id)
	return t, nil
}

// Transition implements ledger.Ledger.  The row is locked with SELECT ...
// FOR UPDATE so the status check and the update see the same state.  The
// generated occupying column turns NULL together with the status, which
// frees the seat in the same statement.
func (l *Ledger) Transition(ctx context.Context, id uint64, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	return l.transition(ctx, id, "", to, at)
}

// TransitionIf implements ledger.Ledger.
func (l *Ledger) TransitionIf(ctx context.Context, id uint64, from, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	return l.transition(ctx, id, from, to, at)
}

func (l *Ledger) transition(ctx context.Context, id uint64, from, to model.TicketStatus, at time.Time) (*model.Ticket, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	if from != "" && cur.Status != from {
		return nil, fmt.Errorf("ticket %d is %s, expected %s: %w", id, cur.Status, from, ledger.ErrStatusChanged)
	}
	if cur.Status == to {
		return cur, nil
	}
	if !cur.Status.CanTransition(to) {
		return nil, fmt.Errorf("ticket %d %s -> %s: %w", id, cur.Status, to, model.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		string(to), at.UTC(), id); err != nil {
		return nil, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	committed = true

	cur.Status = to
	cur.UpdatedAt = at
	return cur, nil
}

// ExpiredReservations implements ledger.Ledger.
func (l *Ledger) ExpiredReservations(ctx context.Context, before time.Time) ([]uint64, error) {
	const q = `SELECT id FROM tickets WHERE status = 'RESERVED' AND purchased_at < ? ORDER BY id`
	rows, err := l.db.QueryContext(ctx, q, before.UTC())
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, classify(rows.Err())
}
