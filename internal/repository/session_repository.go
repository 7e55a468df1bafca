package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
)

// SessionRepo manages sessions and their session_areas links.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, event_id, category, date, start_time, active`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var (
		s        model.Session
		category string
		start    string
	)
	if err := row.Scan(&s.ID, &s.EventID, &category, &s.Date, &start, &s.Active); err != nil {
		return nil, err
	}
	s.Category = schedule.Category(category)
	tod, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", s.ID, err)
	}
	s.Time = tod
	return &s, nil
}

// areaIDs loads the area ids of the given sessions in one query.
func (r *SessionRepo) areaIDs(ctx context.Context, sessions []*model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Session, len(sessions))
	args := make([]any, 0, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
		s.AreaIDs = []uint64{}
		args = append(args, s.ID)
	}
	q := `SELECT session_id, area_id FROM session_areas WHERE session_id IN (?` +
		strings.Repeat(",?", len(sessions)-1) + `) ORDER BY session_id, area_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid, aid uint64
		if err := rows.Scan(&sid, &aid); err != nil {
			return err
		}
		if s, ok := byID[sid]; ok {
			s.AreaIDs = append(s.AreaIDs, aid)
		}
	}
	return rows.Err()
}

// Session loads one session with its area ids.
func (r *SessionRepo) Session(ctx context.Context, id uint64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.areaIDs(ctx, []*model.Session{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionsByEvent lists the sessions of an event ordered by date and time.
func (r *SessionRepo) SessionsByEvent(ctx context.Context, eventID uint64) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE event_id = ? ORDER BY date, start_time`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.areaIDs(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession inserts the session and its area links in one
// transaction.  A duplicate (event, date, time) yields
// model.ErrSessionExists.
func (r *SessionRepo) CreateSession(ctx context.Context, s *model.Session) (*model.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (event_id, category, date, start_time, active) VALUES (?, ?, ?, ?, ?)`,
		s.EventID, string(s.Category), s.Date.Format("2006-01-02"), s.Time.String()+":00", s.Active)
	if err != nil {
		var me *gomysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, fmt.Errorf("event %d at %s %s: %w", s.EventID, s.Date.Format("2006-01-02"), s.Time, model.ErrSessionExists)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *s
	out.ID = uint64(id)
	out.AreaIDs = append([]uint64{}, s.AreaIDs...)

	if len(out.AreaIDs) > 0 {
		q := `INSERT INTO session_areas (session_id, area_id) VALUES (?, ?)` +
			strings.Repeat(", (?, ?)", len(out.AreaIDs)-1)
		args := make([]any, 0, 2*len(out.AreaIDs))
		for _, aid := range out.AreaIDs {
			args = append(args, out.ID, aid)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &out, nil
}
