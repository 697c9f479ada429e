package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/run-crew/internal/authority"
	"github.com/iliyamo/run-crew/internal/model"
)

// MembershipRepo owns the per-(user, crew) role records and the two
// invariants attached to them: membership uniqueness (unique key on
// user_id + crew_id) and leader uniqueness (exactly one LEADER row per
// non-empty crew).  Every mutation that could disturb the leader
// invariant runs in a transaction that locks the affected membership
// rows FOR UPDATE, so no intermediate state with zero or two leaders is
// ever committed or visible to concurrent readers.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// Join creates a MEMBER-role membership for the user in the crew.  The
// crew must exist and be active.  A second join by the same user hits
// the unique key and is reported as ErrMembershipExists.
func (r *MembershipRepo) Join(ctx context.Context, userID, crewID uint64) (*model.Membership, error) {
	var m model.Membership
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM crews WHERE id = ? AND deleted_at IS NULL`, crewID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCrewNotFound
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, crew_id, role) VALUES (?, ?, ?)`,
			userID, crewID, model.RoleMember)
		if isDuplicateKey(err) {
			return ErrMembershipExists
		}
		if err != nil {
			return err
		}
		mid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m = model.Membership{ID: uint64(mid), UserID: userID, CrewID: crewID, Role: model.RoleMember}
		return tx.QueryRowContext(ctx,
			`SELECT joined_at FROM memberships WHERE id = ?`, m.ID).Scan(&m.JoinedAt)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Leave removes the user's membership from the crew.  The Leader can
// never leave; leadership must be transferred first (or the crew
// deleted), which keeps the leader-uniqueness invariant intact.
func (r *MembershipRepo) Leave(ctx context.Context, userID, crewID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := getMembershipTx(ctx, tx, crewID, userID, true)
		if err != nil {
			return err
		}
		if authority.IsLeader(m) {
			return ErrLeaderCannotLeave
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM memberships WHERE id = ?`, m.ID)
		return err
	})
}

// TransferLeadership atomically demotes the current leader to MEMBER
// and promotes the target to LEADER.  Both membership rows are locked
// FOR UPDATE for the duration, so concurrent transfers on the same crew
// serialize and a reader never observes zero or two leaders.  The actor
// must be the current leader and the target must already be a member.
func (r *MembershipRepo) TransferLeadership(ctx context.Context, crewID, actorID, targetID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		actor, err := getMembershipTx(ctx, tx, crewID, actorID, true)
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotLeader
		}
		if err != nil {
			return err
		}
		if !authority.IsLeader(actor) {
			return ErrNotLeader
		}
		if actorID == targetID {
			// The leader transferring to themselves is a no-op.
			return nil
		}
		target, err := getMembershipTx(ctx, tx, crewID, targetID, true)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE memberships SET role = ? WHERE id = ?`, model.RoleMember, actor.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE memberships SET role = ? WHERE id = ?`, model.RoleLeader, target.ID)
		return err
	})
}

// ChangeRole sets the target membership to STAFF or MEMBER and returns
// the previous and new roles.  The acting user must be the leader.
// Leadership is never assigned or removed here: a LEADER target and a
// LEADER newRole are both rejected, which is what protects the leader
// invariant from being bypassed through generic role assignment.
func (r *MembershipRepo) ChangeRole(ctx context.Context, crewID, actorID, targetID uint64, newRole model.Role) (model.Role, model.Role, error) {
	if newRole == model.RoleLeader {
		return "", "", ErrTargetIsLeader
	}
	var oldRole model.Role
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		actor, err := getMembershipTx(ctx, tx, crewID, actorID, true)
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotLeader
		}
		if err != nil {
			return err
		}
		if !authority.IsLeader(actor) {
			return ErrNotLeader
		}
		target, err := getMembershipTx(ctx, tx, crewID, targetID, true)
		if err != nil {
			return err
		}
		if authority.IsLeader(target) {
			return ErrTargetIsLeader
		}
		oldRole = target.Role
		_, err = tx.ExecContext(ctx,
			`UPDATE memberships SET role = ? WHERE id = ?`, newRole, target.ID)
		return err
	})
	if err != nil {
		return "", "", err
	}
	return oldRole, newRole, nil
}

// Kick removes the target membership from the crew.  The acting user
// must be the leader and the leader itself can never be kicked.
func (r *MembershipRepo) Kick(ctx context.Context, crewID, actorID, targetID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		actor, err := getMembershipTx(ctx, tx, crewID, actorID, true)
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotLeader
		}
		if err != nil {
			return err
		}
		if !authority.IsLeader(actor) {
			return ErrNotLeader
		}
		target, err := getMembershipTx(ctx, tx, crewID, targetID, true)
		if err != nil {
			return err
		}
		if authority.IsLeader(target) {
			return ErrTargetIsLeader
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM memberships WHERE id = ?`, target.ID)
		return err
	})
}

// GetByUserAndCrew returns the membership for the (user, crew) pair or
// ErrMembershipNotFound.
func (r *MembershipRepo) GetByUserAndCrew(ctx context.Context, userID, crewID uint64) (*model.Membership, error) {
	const q = `SELECT id, user_id, crew_id, role, joined_at
	           FROM memberships WHERE user_id = ? AND crew_id = ?`
	var m model.Membership
	err := r.db.QueryRowContext(ctx, q, userID, crewID).Scan(
		&m.ID, &m.UserID, &m.CrewID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CrewMember is the display projection of a membership joined with the
// member's user record.
type CrewMember struct {
	UserID   uint64     `json:"user_id"`
	Nickname string     `json:"nickname"`
	Role     model.Role `json:"role"`
	JoinedAt string     `json:"joined_at"`
}

// ListByCrew returns the crew's members ordered Leader first, then
// Staff, then Member, and by join time within each tier.  When role is
// non-nil only members of that role are returned.
func (r *MembershipRepo) ListByCrew(ctx context.Context, crewID uint64, role *model.Role) ([]CrewMember, error) {
	q := `SELECT m.user_id, u.nickname, m.role, m.joined_at
	      FROM memberships m
	      JOIN users u ON u.id = m.user_id
	      WHERE m.crew_id = ?`
	args := []interface{}{crewID}
	if role != nil {
		q += ` AND m.role = ?`
		args = append(args, *role)
	}
	q += ` ORDER BY FIELD(m.role, 'LEADER', 'STAFF', 'MEMBER'), m.joined_at ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]CrewMember, 0)
	for rows.Next() {
		var cm CrewMember
		var joinedAt sql.NullTime
		if err := rows.Scan(&cm.UserID, &cm.Nickname, &cm.Role, &joinedAt); err != nil {
			return nil, err
		}
		if joinedAt.Valid {
			cm.JoinedAt = joinedAt.Time.UTC().Format(time.RFC3339)
		}
		members = append(members, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// CountsByRole returns the member count per role for a crew.  Roles
// with no members are present with a zero count so callers can render
// all three tiers unconditionally.
func (r *MembershipRepo) CountsByRole(ctx context.Context, crewID uint64) (map[model.Role]int, error) {
	counts := map[model.Role]int{
		model.RoleLeader: 0,
		model.RoleStaff:  0,
		model.RoleMember: 0,
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM memberships WHERE crew_id = ? GROUP BY role`, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role model.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// getMembershipTx loads one membership row inside a transaction.  With
// forUpdate the row is locked until the transaction ends, which is how
// leadership transfers and role changes on the same crew serialize.
func getMembershipTx(ctx context.Context, tx *sql.Tx, crewID, userID uint64, forUpdate bool) (*model.Membership, error) {
	q := `SELECT id, user_id, crew_id, role, joined_at
	      FROM memberships WHERE crew_id = ? AND user_id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var m model.Membership
	err := tx.QueryRowContext(ctx, q, crewID, userID).Scan(
		&m.ID, &m.UserID, &m.CrewID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
