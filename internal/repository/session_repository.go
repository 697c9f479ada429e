package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/run-crew/internal/model"
)

// SessionRepo provides persistence for crew sessions.  Sessions are
// soft-deleted like crews; all reads filter deleted_at.  Status flips
// OPEN -> CLOSED exclusively through CloseExpired (the sweeper); no
// handler path mutates status directly.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session for an active crew.  Status defaults to
// OPEN in the database.  The generated ID and DB-side timestamps are
// written back onto s.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM crews WHERE id = ? AND deleted_at IS NULL`, s.CrewID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCrewNotFound
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions
			   (crew_id, host_user_id, name, description, location,
			    session_at, register_by, level, pace, max_participant_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.CrewID, s.HostUserID, s.Name, s.Description, s.Location,
			s.SessionAt, s.RegisterBy, s.Level, s.Pace, s.MaxParticipantCount)
		if err != nil {
			return err
		}
		sid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = uint64(sid)
		return tx.QueryRowContext(ctx,
			`SELECT status, created_at FROM sessions WHERE id = ?`, s.ID).
			Scan(&s.Status, &s.CreatedAt)
	})
}

// GetByID returns an active session or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT id, crew_id, host_user_id, name, description, location,
	                  session_at, register_by, level, pace, max_participant_count,
	                  status, deleted_at, created_at
	           FROM sessions WHERE id = ? AND deleted_at IS NULL`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SessionUpdate lists the mutable session attributes.  Nil fields are
// left untouched; capacity changes do not retroactively evict admitted
// participants.
type SessionUpdate struct {
	Name                *string
	Description         *string
	Location            *string
	SessionAt           *time.Time
	RegisterBy          *time.Time
	Level               *string
	Pace                *string
	MaxParticipantCount *uint32
}

// Update applies attribute changes to an active session.
func (r *SessionRepo) Update(ctx context.Context, id uint64, upd SessionUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.SessionAt != nil {
		add("session_at", *upd.SessionAt)
	}
	if upd.RegisterBy != nil {
		add("register_by", *upd.RegisterBy)
	}
	if upd.Level != nil {
		add("level", *upd.Level)
	}
	if upd.Pace != nil {
		add("pace", *upd.Pace)
	}
	if upd.MaxParticipantCount != nil {
		add("max_participant_count", *upd.MaxParticipantCount)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either absent or soft-deleted; verify which to keep the error honest.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete marks a session deleted.  Idempotent: deleting an already
// deleted session reports ErrSessionNotFound.
func (r *SessionRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET deleted_at = UTC_TIMESTAMP() WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByCrew returns the crew's active sessions ordered by start time.
// A non-nil status narrows the result to OPEN or CLOSED sessions.
func (r *SessionRepo) ListByCrew(ctx context.Context, crewID uint64, status *model.SessionStatus) ([]model.Session, error) {
	q := `SELECT id, crew_id, host_user_id, name, description, location,
	             session_at, register_by, level, pace, max_participant_count,
	             status, deleted_at, created_at
	      FROM sessions WHERE crew_id = ? AND deleted_at IS NULL`
	args := []interface{}{crewID}
	if status != nil {
		q += ` AND status = ?`
		args = append(args, *status)
	}
	q += ` ORDER BY session_at ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseExpired transitions every open, non-deleted session whose
// registration deadline lies strictly before now to CLOSED, as one
// conditional bulk update.  It is idempotent (a second run with the
// same now matches zero rows) and safe to run concurrently with joins,
// which lock individual session rows.  It returns the number of
// sessions transitioned and never fails on zero matches.
func (r *SessionRepo) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?
		 WHERE status = ? AND deleted_at IS NULL AND register_by < ?`,
		model.SessionClosed, model.SessionOpen, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(rs rowScanner) (*model.Session, error) {
	var s model.Session
	var deletedAt sql.NullTime
	err := rs.Scan(
		&s.ID, &s.CrewID, &s.HostUserID, &s.Name, &s.Description, &s.Location,
		&s.SessionAt, &s.RegisterBy, &s.Level, &s.Pace, &s.MaxParticipantCount,
		&s.Status, &deletedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}
