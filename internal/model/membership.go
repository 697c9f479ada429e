package model

import (
	"errors"
	"strings"
	"time"
)

// Role is the closed set of crew roles.  Values match the memberships.role
// enum column.  Leadership is exclusive: a non-empty crew has exactly one
// LEADER membership at all times.
type Role string

const (
	RoleLeader Role = "LEADER"
	RoleStaff  Role = "STAFF"
	RoleMember Role = "MEMBER"
)

// ErrInvalidRole is returned by ParseRole for text outside the closed set.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes free-text role input into a Role.  All role text
// arriving from clients (filters, role-change requests) must funnel
// through here; nothing else converts strings to roles.  "general" is
// accepted as a legacy alias for MEMBER.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEADER":
		return RoleLeader, nil
	case "STAFF":
		return RoleStaff, nil
	case "MEMBER", "GENERAL":
		return RoleMember, nil
	}
	return "", ErrInvalidRole
}

// SortPriority returns the display ordering of a role: Leader first,
// then Staff, then Member.  This is presentation order only; privilege
// ordering is the reverse and lives in the authority package.
func (r Role) SortPriority() int {
	switch r {
	case RoleLeader:
		return 0
	case RoleStaff:
		return 1
	default:
		return 2
	}
}

// Membership is the role relationship between one user and one crew.
// At most one membership exists per (user, crew) pair, enforced by a
// unique key on the memberships table.
type Membership struct {
	ID       uint64    // memberships.id
	UserID   uint64    // memberships.user_id
	CrewID   uint64    // memberships.crew_id
	Role     Role      // memberships.role
	JoinedAt time.Time // memberships.joined_at
}
