package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// AreaRepo reads seating areas.
type AreaRepo struct {
	db *sql.DB
}

// NewAreaRepo returns a new AreaRepo bound to the given database.
func NewAreaRepo(db *sql.DB) *AreaRepo { return &AreaRepo{db: db} }

// Area loads one area, active or not.  Callers that sell seats go through
// seating.Inventory, which hides inactive areas.
func (r *AreaRepo) Area(ctx context.Context, id uint64) (*model.Area, error) {
	const q = `SELECT id, name, capacity, price, active FROM areas WHERE id = ?`
	var a model.Area
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.Name, &a.Capacity, &a.Price, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("area %d: %w", id, model.ErrAreaNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAreas returns every area ordered by id.
func (r *AreaRepo) ListAreas(ctx context.Context) ([]*model.Area, error) {
	const q = `SELECT id, name, capacity, price, active FROM areas ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Area{}
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.Capacity, &a.Price, &a.Active); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateArea inserts a and returns it with its new id.
func (r *AreaRepo) CreateArea(ctx context.Context, a *model.Area) (*model.Area, error) {
	const q = `INSERT INTO areas (name, capacity, price, active) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Capacity, a.Price, a.Active)
	if err != nil {
		return nil, fmt.Errorf("insert area: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *a
	out.ID = uint64(id)
	return &out, nil
}

// UpdateArea changes name, price and active flag.  Capacity is fixed once
// tickets may reference its seats.
func (r *AreaRepo) UpdateArea(ctx context.Context, a *model.Area) (*model.Area, error) {
	const q = `UPDATE areas SET name = ?, price = ?, active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, a.Name, a.Price, a.Active, a.ID); err != nil {
		return nil, fmt.Errorf("update area %d: %w", a.ID, err)
	}
	return r.Area(ctx, a.ID)
}
