package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/run-crew/internal/model"
)

// RegistrationRepo owns session admission.  The capacity invariant,
// that a session's registration count never exceeds its capacity at any
// committed state, is enforced by serializing every join on the same
// session: Join locks the session row FOR UPDATE before counting, so
// two requests can never both observe count = capacity-1 and insert.
// Joins on different sessions lock different rows and proceed in
// parallel.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// Join admits a user to a session.  In one transaction, holding the
// session row lock throughout, it verifies that the session is open and
// its registration window has not elapsed (ErrSessionClosed), that the
// user is not already admitted (ErrAlreadyJoined), and that a slot is
// free (ErrSessionFull), then inserts the registration.  now must come
// from the same clock the sweeper uses so the window check and the
// sweep can never disagree about a deadline.  It returns the post-join
// count and the session capacity.
func (r *RegistrationRepo) Join(ctx context.Context, sessionID, userID uint64, now time.Time) (count int, capacity uint32, err error) {
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			status     model.SessionStatus
			registerBy time.Time
			deletedAt  sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, register_by, max_participant_count, deleted_at
			 FROM sessions WHERE id = ? FOR UPDATE`, sessionID).
			Scan(&status, &registerBy, &capacity, &deletedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if deletedAt.Valid {
			return ErrSessionNotFound
		}
		if status != model.SessionOpen || !now.Before(registerBy) {
			return ErrSessionClosed
		}
		var joined bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM registrations WHERE session_id = ? AND user_id = ?)`,
			sessionID, userID).Scan(&joined); err != nil {
			return err
		}
		if joined {
			return ErrAlreadyJoined
		}
		var current int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations WHERE session_id = ?`, sessionID).
			Scan(&current); err != nil {
			return err
		}
		if current >= int(capacity) {
			return ErrSessionFull
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO registrations (session_id, user_id) VALUES (?, ?)`,
			sessionID, userID)
		if isDuplicateKey(err) {
			// Unreachable while the session lock is held, but the unique
			// key remains the last line of defense.
			return ErrAlreadyJoined
		}
		if err != nil {
			return err
		}
		count = current + 1
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, capacity, nil
}

// Cancel removes the user's registration and returns the remaining
// count.  No capacity check is needed since the count only decreases,
// but the session row is still locked so the count read pairs consistently
// with concurrent joins.
func (r *RegistrationRepo) Cancel(ctx context.Context, sessionID, userID uint64) (remaining int, err error) {
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM sessions WHERE id = ? FOR UPDATE`, sessionID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM registrations WHERE session_id = ? AND user_id = ?`,
			sessionID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotParticipant
		}
		return tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations WHERE session_id = ?`, sessionID).
			Scan(&remaining)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Participant is the display projection of a registration joined with
// the participant's user record and crew role.  A participant who is
// not a member of the session's crew is shown as MEMBER.
type Participant struct {
	UserID   uint64     `json:"user_id"`
	Nickname string     `json:"nickname"`
	CrewRole model.Role `json:"crew_role"`
	JoinedAt string     `json:"joined_at"`
}

// ListParticipants returns the session's participants ordered by join
// time.  With byRole the list is ordered Leader -> Staff -> Member
// first and by join time within each tier.
func (r *RegistrationRepo) ListParticipants(ctx context.Context, sessionID uint64, byRole bool) ([]Participant, error) {
	q := `SELECT reg.user_id, u.nickname,
	             COALESCE(m.role, 'MEMBER') AS crew_role, reg.joined_at
	      FROM registrations reg
	      JOIN sessions s ON s.id = reg.session_id
	      JOIN users u ON u.id = reg.user_id
	      LEFT JOIN memberships m ON m.crew_id = s.crew_id AND m.user_id = reg.user_id
	      WHERE reg.session_id = ?`
	if byRole {
		q += ` ORDER BY FIELD(COALESCE(m.role, 'MEMBER'), 'LEADER', 'STAFF', 'MEMBER'), reg.joined_at ASC`
	} else {
		q += ` ORDER BY reg.joined_at ASC`
	}
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	participants := make([]Participant, 0)
	for rows.Next() {
		var p Participant
		var joinedAt sql.NullTime
		if err := rows.Scan(&p.UserID, &p.Nickname, &p.CrewRole, &joinedAt); err != nil {
			return nil, err
		}
		if joinedAt.Valid {
			p.JoinedAt = joinedAt.Time.UTC().Format(time.RFC3339)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}
