package repository

import (
	"context"
	"database/sql"
	"errors"
)

// InterestRepo persists session likes.  Plain set semantics: the unique
// key on (session_id, user_id) is the only invariant, so no row locking
// is needed here.
type InterestRepo struct {
	db *sql.DB
}

// NewInterestRepo returns an InterestRepo bound to the given database.
func NewInterestRepo(db *sql.DB) *InterestRepo { return &InterestRepo{db: db} }

// Like records the user's interest in an active session.  Liking twice
// returns ErrAlreadyLiked via the unique key.
func (r *InterestRepo) Like(ctx context.Context, sessionID, userID uint64) error {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE id = ? AND deleted_at IS NULL`, sessionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO interests (session_id, user_id) VALUES (?, ?)`, sessionID, userID)
	if isDuplicateKey(err) {
		return ErrAlreadyLiked
	}
	return err
}

// Unlike removes the user's like.  Removing a like that does not exist
// returns ErrInterestNotFound.
func (r *InterestRepo) Unlike(ctx context.Context, sessionID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM interests WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInterestNotFound
	}
	return nil
}

// CountBySession returns the number of likes on a session.
func (r *InterestRepo) CountBySession(ctx context.Context, sessionID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interests WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// HasLiked reports whether the user has liked the session.
func (r *InterestRepo) HasLiked(ctx context.Context, sessionID, userID uint64) (bool, error) {
	var liked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM interests WHERE session_id = ? AND user_id = ?)`,
		sessionID, userID).Scan(&liked)
	return liked, err
}
