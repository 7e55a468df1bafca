// Package repository contains the MySQL data access for the catalogue the
// booking core looks up by id: events, sessions, areas and users.  Tickets
// live in the ledger packages.  Lookups of unknown ids return errors
// matching the model.Err*NotFound sentinels.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// EventRepo reads events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Event loads one event.
func (r *EventRepo) Event(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, duration_min, rating, active FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Name, &e.DurationMin, &e.Rating, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, model.ErrEventNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns events ordered by id, only active ones when
// activeOnly is set.
func (r *EventRepo) ListEvents(ctx context.Context, activeOnly bool) ([]*model.Event, error) {
	q := `SELECT id, name, duration_min, rating, active FROM events`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.DurationMin, &e.Rating, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CreateEvent inserts e and returns it with its new id.
func (r *EventRepo) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	const q = `INSERT INTO events (name, duration_min, rating, active) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.Name, e.DurationMin, e.Rating, e.Active)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *e
	out.ID = uint64(id)
	return &out, nil
}

// UpdateEvent overwrites every column of the event with e.ID.
func (r *EventRepo) UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	const q = `UPDATE events SET name = ?, duration_min = ?, rating = ?, active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, e.Name, e.DurationMin, e.Rating, e.Active, e.ID); err != nil {
		return nil, fmt.Errorf("update event %d: %w", e.ID, err)
	}
	// RowsAffected is zero for an unchanged row, so existence is checked by
	// reading it back.
	return r.Event(ctx, e.ID)
}
