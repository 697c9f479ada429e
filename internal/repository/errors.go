// Package repository implements MySQL persistence for crews,
// memberships, sessions, registrations and interests.  This file
// defines the sentinel errors shared across repositories.  Higher
// layers compare against them with errors.Is and translate them into
// HTTP responses; the taxonomy is NotFound, Conflict and Forbidden.
// None of these trigger retries inside the repository layer; the only
// internally retried condition is a store-level lock conflict, which is
// handled where transactions are opened.
package repository

import "errors"

// Not-found errors.  Soft-deleted crews and sessions are reported as
// absent, the same as rows that never existed.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCrewNotFound        = errors.New("crew not found")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotParticipant      = errors.New("not a session participant")
	ErrInterestNotFound    = errors.New("session like not found")
)

// Conflict errors.  All represent state the caller can observe and
// recover from; handlers map them to HTTP 409.
var (
	ErrEmailExists      = errors.New("email already exists")
	ErrMembershipExists = errors.New("membership already exists")
	ErrAlreadyJoined    = errors.New("already joined this session")
	ErrAlreadyLiked     = errors.New("already liked this session")
	ErrSessionFull      = errors.New("session is full")
	ErrSessionClosed    = errors.New("session is closed for registration")
)

// Forbidden errors, mapping to HTTP 403.
var (
	ErrNotLeader         = errors.New("requires the crew leader role")
	ErrNotStaff          = errors.New("requires the staff role or above")
	ErrTargetIsLeader    = errors.New("target membership is the crew leader")
	ErrLeaderCannotLeave = errors.New("the leader cannot leave the crew")
)
