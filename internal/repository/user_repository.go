package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// UserRepo reads ticket holders.  Accounts are managed elsewhere.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// User loads one user by id.
func (r *UserRepo) User(ctx context.Context, id uint64) (*model.User, error) {
	return r.one(ctx, `SELECT id, email, role, active FROM users WHERE id = ?`, id)
}

// UserByEmail loads one user by normalised email.
func (r *UserRepo) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.one(ctx, `SELECT id, email, role, active FROM users WHERE email = ? LIMIT 1`, email)
}

func (r *UserRepo) one(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.Role, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, model.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
