package model

import (
	"errors"
	"strings"
	"time"
)

// SessionStatus is the closed set of session states.  A session starts
// OPEN and flips to CLOSED exactly once, either by the expiry sweeper
// when its registration deadline elapses or never (Closed sessions stay
// closed).
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// ErrInvalidStatus is returned by ParseStatus for text outside the closed set.
var ErrInvalidStatus = errors.New("invalid session status")

// ParseStatus normalizes free-text status filters into a SessionStatus.
func ParseStatus(s string) (SessionStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return SessionOpen, nil
	case "CLOSED":
		return SessionClosed, nil
	}
	return "", ErrInvalidStatus
}

// Session is a scheduled group run belonging to a crew.  Admission is
// bounded by MaxParticipantCount and time-boxed by RegisterBy; both are
// enforced transactionally by the registration repository, never here.
//
// RegisterBy should not be later than SessionAt, but that is a client
// convention rather than a hard constraint.
type Session struct {
	ID                  uint64        // sessions.id
	CrewID              uint64        // sessions.crew_id
	HostUserID          uint64        // sessions.host_user_id
	Name                string        // sessions.name
	Description         string        // sessions.description
	Location            string        // sessions.location
	SessionAt           time.Time     // sessions.session_at
	RegisterBy          time.Time     // sessions.register_by
	Level               string        // sessions.level (free text, e.g. "beginner")
	Pace                string        // sessions.pace (e.g. "6:00/km")
	MaxParticipantCount uint32        // sessions.max_participant_count (>= 1)
	Status              SessionStatus // sessions.status
	DeletedAt           *time.Time    // sessions.deleted_at (nullable)
	CreatedAt           time.Time     // sessions.created_at
}

// IsDeleted reports whether the session has been soft-deleted.
func (s *Session) IsDeleted() bool { return s.DeletedAt != nil }

// JoinableAt reports whether the session accepts registrations at the
// given instant: it must be open, not deleted, and the registration
// window must not have elapsed.  The same instant must be used by the
// sweeper so the two can never disagree about a deadline.
func (s *Session) JoinableAt(now time.Time) bool {
	return !s.IsDeleted() && s.Status == SessionOpen && now.Before(s.RegisterBy)
}
