// Package authority holds the pure role-authority predicates shared by
// the crew and session mutation paths.  Keeping them in one place stops
// the "can create a session" and "can update a session" rules from
// drifting apart across handlers and services.
package authority

import "github.com/iliyamo/run-crew/internal/model"

// IsLeader reports whether the membership carries the Leader role.
// Leader is the only role allowed to mutate crew attributes, transfer
// leadership, change roles, or kick members.
func IsLeader(m *model.Membership) bool {
	return m != nil && m.Role == model.RoleLeader
}

// IsStaffOrAbove reports whether the membership is Staff or Leader.
// Staff-or-above is required to create or update crew sessions.
func IsStaffOrAbove(m *model.Membership) bool {
	return m != nil && (m.Role == model.RoleLeader || m.Role == model.RoleStaff)
}
