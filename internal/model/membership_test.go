package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"LEADER", RoleLeader},
		{"leader", RoleLeader},
		{" Staff ", RoleStaff},
		{"member", RoleMember},
		{"MEMBER", RoleMember},
		{"general", RoleMember}, // legacy alias
		{"General", RoleMember},
	}
	for _, c := range cases {
		got, err := ParseRole(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "  ", "admin", "LEAD", "owner"} {
		_, err := ParseRole(in)
		assert.ErrorIs(t, err, ErrInvalidRole, "input %q", in)
	}
}

func TestRoleSortPriority(t *testing.T) {
	assert.Less(t, RoleLeader.SortPriority(), RoleStaff.SortPriority())
	assert.Less(t, RoleStaff.SortPriority(), RoleMember.SortPriority())
}
