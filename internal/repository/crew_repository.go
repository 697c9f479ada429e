package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/run-crew/internal/authority"
	"github.com/iliyamo/run-crew/internal/model"
)

// CrewRepo provides persistence for crews.  Crews are never hard
// deleted; DeleteByLeader only stamps deleted_at, and every read in
// this repository filters on that column so deleted crews behave as if
// they were absent.
type CrewRepo struct {
	db *sql.DB
}

// NewCrewRepo returns a CrewRepo bound to the given database.
func NewCrewRepo(db *sql.DB) *CrewRepo { return &CrewRepo{db: db} }

// CreateWithLeader inserts a crew together with a Leader membership for
// its creator in a single transaction.  The creator must resolve to an
// active user, otherwise ErrUserNotFound is returned and nothing is
// written.  On success the crew has exactly one Leader from its very
// first committed state.
func (r *CrewRepo) CreateWithLeader(ctx context.Context, c *model.Crew, creatorID uint64) (*model.Membership, error) {
	var m model.Membership
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var uid uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE id = ? AND is_active = 1`, creatorID).Scan(&uid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO crews (name, description, region, image_url) VALUES (?, ?, ?, ?)`,
			c.Name, c.Description, c.Region, c.ImageURL)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		res, err = tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, crew_id, role) VALUES (?, ?, ?)`,
			creatorID, c.ID, model.RoleLeader)
		if err != nil {
			return err
		}
		mid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m = model.Membership{ID: uint64(mid), UserID: creatorID, CrewID: c.ID, Role: model.RoleLeader}
		// Read back DB-defaulted timestamps so the caller gets the row as committed.
		if err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM crews WHERE id = ?`, c.ID).Scan(&c.CreatedAt); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT joined_at FROM memberships WHERE id = ?`, m.ID).Scan(&m.JoinedAt)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID returns an active crew by ID.  Soft-deleted crews are
// reported as ErrCrewNotFound.
func (r *CrewRepo) GetByID(ctx context.Context, id uint64) (*model.Crew, error) {
	const q = `SELECT id, name, description, region, image_url, deleted_at, created_at
	           FROM crews WHERE id = ? AND deleted_at IS NULL`
	var c model.Crew
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Region, &c.ImageURL, &deletedAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCrewNotFound
	}
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

// CrewUpdate lists the mutable crew attributes.  Nil fields are left
// untouched.
type CrewUpdate struct {
	Name        *string
	Description *string
	Region      *string
	ImageURL    *string
}

// UpdateByLeader applies the given attribute changes to a crew.  The
// acting user must hold the Leader membership of the crew; anyone else
// gets ErrNotLeader (including non-members).  The authority check and
// the update run in one transaction.
func (r *CrewRepo) UpdateByLeader(ctx context.Context, crewID, actorID uint64, upd CrewUpdate) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := requireLeaderTx(ctx, tx, crewID, actorID); err != nil {
			return err
		}
		sets := make([]string, 0, 4)
		args := make([]interface{}, 0, 5)
		if upd.Name != nil {
			sets = append(sets, "name = ?")
			args = append(args, *upd.Name)
		}
		if upd.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *upd.Description)
		}
		if upd.Region != nil {
			sets = append(sets, "region = ?")
			args = append(args, *upd.Region)
		}
		if upd.ImageURL != nil {
			sets = append(sets, "image_url = ?")
			args = append(args, *upd.ImageURL)
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, crewID)
		_, err := tx.ExecContext(ctx,
			`UPDATE crews SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
			args...)
		return err
	})
}

// DeleteByLeader soft-deletes a crew.  Only its Leader may do so.  The
// crew's memberships and sessions are left in place for history.
func (r *CrewRepo) DeleteByLeader(ctx context.Context, crewID, actorID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := requireLeaderTx(ctx, tx, crewID, actorID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE crews SET deleted_at = UTC_TIMESTAMP() WHERE id = ? AND deleted_at IS NULL`,
			crewID)
		return err
	})
}

// requireLeaderTx verifies, inside the caller's transaction, that the
// crew is active and that the actor holds its Leader membership.
func requireLeaderTx(ctx context.Context, tx *sql.Tx, crewID, actorID uint64) error {
	var exists uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM crews WHERE id = ? AND deleted_at IS NULL`, crewID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCrewNotFound
	}
	if err != nil {
		return err
	}
	m, err := getMembershipTx(ctx, tx, crewID, actorID, false)
	if errors.Is(err, ErrMembershipNotFound) {
		return ErrNotLeader
	}
	if err != nil {
		return err
	}
	if !authority.IsLeader(m) {
		return ErrNotLeader
	}
	return nil
}
