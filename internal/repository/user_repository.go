package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/utils"
)

// UserRepo provides access to the users table.  The crew and session
// core only ever resolves users; account mutation is confined to the
// auth surface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user with a bcrypt-hashed password and returns
// the generated ID.  A duplicate email returns ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, nickname string, bcryptCost int) (uint64, error) {
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, nickname) VALUES (?, ?, ?)`,
		email, hash, nickname)
	if isDuplicateKey(err) {
		return 0, ErrEmailExists
	}
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail returns the active user with the given email address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, email, password_hash, nickname, is_active, created_at
	           FROM users WHERE email = ? AND is_active = 1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, email))
}

// GetByID returns the active user with the given ID.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, email, password_hash, nickname, is_active, created_at
	           FROM users WHERE id = ? AND is_active = 1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepo) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
