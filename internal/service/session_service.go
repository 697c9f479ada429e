package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/run-crew/internal/authority"
	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/repository"
)

// SessionStore is the storage contract for sessions.  CloseExpired is
// the sweeper's single entry point and must be one atomic conditional
// bulk update.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	Update(ctx context.Context, id uint64, upd repository.SessionUpdate) error
	SoftDelete(ctx context.Context, id uint64) error
	ListByCrew(ctx context.Context, crewID uint64, status *model.SessionStatus) ([]model.Session, error)
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// Session input validation errors.
var (
	ErrSessionNameRequired = errors.New("session name is required")
	ErrInvalidCapacity     = errors.New("max participant count must be at least 1")
	ErrInvalidSchedule     = errors.New("session time and registration deadline are required")
	ErrOnlyHostMayDelete   = errors.New("only the session host may delete it")
)

// SessionService implements the session lifecycle operations.  Session
// creation and update are gated on the actor holding Staff or Leader in
// the owning crew; deletion is reserved for the session's host.
type SessionService struct {
	sessions SessionStore
	members  MembershipStore
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions SessionStore, members MembershipStore) *SessionService {
	return &SessionService{sessions: sessions, members: members}
}

// CreateSession creates an open session in the crew, hosted by the
// actor.  The actor must be Staff or Leader of the crew.
func (s *SessionService) CreateSession(ctx context.Context, crewID, hostID uint64, in *model.Session) (*model.Session, error) {
	if err := s.requireStaffOrAbove(ctx, hostID, crewID); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrSessionNameRequired
	}
	if in.MaxParticipantCount < 1 {
		return nil, ErrInvalidCapacity
	}
	if in.SessionAt.IsZero() || in.RegisterBy.IsZero() {
		return nil, ErrInvalidSchedule
	}
	in.CrewID = crewID
	in.HostUserID = hostID
	if err := s.sessions.Create(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// GetSession returns an active session.
func (s *SessionService) GetSession(ctx context.Context, sessionID uint64) (*model.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// UpdateSession applies schedule, capacity or metadata changes.  The
// actor must be Staff or Leader of the session's crew.
func (s *SessionService) UpdateSession(ctx context.Context, sessionID, actorID uint64, upd repository.SessionUpdate) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.requireStaffOrAbove(ctx, actorID, sess.CrewID); err != nil {
		return err
	}
	if upd.MaxParticipantCount != nil && *upd.MaxParticipantCount < 1 {
		return ErrInvalidCapacity
	}
	return s.sessions.Update(ctx, sessionID, upd)
}

// DeleteSession soft-deletes a session.  Only its host may do so.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID, actorID uint64) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.HostUserID != actorID {
		return ErrOnlyHostMayDelete
	}
	return s.sessions.SoftDelete(ctx, sessionID)
}

// ListSessions returns the crew's active sessions, optionally filtered
// by status text ("open"/"closed", normalized via model.ParseStatus).
func (s *SessionService) ListSessions(ctx context.Context, crewID uint64, statusFilter string) ([]model.Session, error) {
	var status *model.SessionStatus
	if strings.TrimSpace(statusFilter) != "" {
		st, err := model.ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = &st
	}
	return s.sessions.ListByCrew(ctx, crewID, status)
}

// requireStaffOrAbove resolves the actor's membership in the crew and
// applies the staff-or-above authority predicate.  Non-members are
// rejected the same way as plain members.
func (s *SessionService) requireStaffOrAbove(ctx context.Context, userID, crewID uint64) error {
	m, err := s.members.GetByUserAndCrew(ctx, userID, crewID)
	if errors.Is(err, repository.ErrMembershipNotFound) {
		return repository.ErrNotStaff
	}
	if err != nil {
		return err
	}
	if !authority.IsStaffOrAbove(m) {
		return repository.ErrNotStaff
	}
	return nil
}
