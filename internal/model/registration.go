package model

import "time"

// Registration is a user's admitted slot in a session.  Registrations
// are created by join and destroyed by cancel, never mutated.  At most
// one exists per (session, user), and the number of registrations for a
// session never exceeds the session's MaxParticipantCount at any
// committed state.
type Registration struct {
	ID        uint64    // registrations.id
	SessionID uint64    // registrations.session_id
	UserID    uint64    // registrations.user_id
	JoinedAt  time.Time // registrations.joined_at
}

// Interest is a user's "like" on a session.  Plain set semantics: unique
// per (session, user), no capacity bound, no cross-entity invariant.
type Interest struct {
	ID        uint64    // interests.id
	SessionID uint64    // interests.session_id
	UserID    uint64    // interests.user_id
	LikedAt   time.Time // interests.liked_at
}
