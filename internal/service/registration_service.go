package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/run-crew/internal/queue"
	"github.com/iliyamo/run-crew/internal/repository"
)

// RegistrationStore is the storage contract for session admission.
// Join must be one serializable unit of work per session: the window
// check, the duplicate check, the capacity check and the insert are
// totally ordered against every concurrent Join on the same session,
// so the committed registration count can never exceed the capacity.
type RegistrationStore interface {
	Join(ctx context.Context, sessionID, userID uint64, now time.Time) (count int, capacity uint32, err error)
	Cancel(ctx context.Context, sessionID, userID uint64) (remaining int, err error)
	ListParticipants(ctx context.Context, sessionID uint64, byRole bool) ([]repository.Participant, error)
}

// EventPublisher sends activity events to the broker.  Publishing is
// best-effort: a broker outage never fails the request that triggered
// the event.
type EventPublisher interface {
	PublishActivity(ctx context.Context, ev queue.ActivityEvent) error
}

// JoinResult reports the admission outcome to the caller.
type JoinResult struct {
	Count    int    `json:"participant_count"`
	Capacity uint32 `json:"max_participant_count"`
}

// RegistrationService implements capacity-gated session admission.
type RegistrationService struct {
	regs      RegistrationStore
	publisher EventPublisher
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService.  publisher
// may be nil when no broker is configured.  now defaults to the wall
// clock; it must be the same clock the sweeper runs on.
func NewRegistrationService(regs RegistrationStore, publisher EventPublisher, now func() time.Time) *RegistrationService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RegistrationService{regs: regs, publisher: publisher, now: now}
}

// Join admits the user to the session and returns the post-join count
// and capacity.  All admission failures surface as the repository
// sentinels (ErrSessionClosed, ErrAlreadyJoined, ErrSessionFull,
// ErrSessionNotFound).
func (s *RegistrationService) Join(ctx context.Context, userID, sessionID uint64) (*JoinResult, error) {
	now := s.now()
	count, capacity, err := s.regs.Join(ctx, sessionID, userID, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.ActivityEvent{
		Type:       queue.EventRegistrationConfirmed,
		SessionID:  sessionID,
		UserID:     userID,
		Count:      count,
		Capacity:   capacity,
		OccurredAt: now.Format(time.RFC3339),
	})
	return &JoinResult{Count: count, Capacity: capacity}, nil
}

// Cancel withdraws the user's registration and returns the remaining
// count.  Cancelling frees a slot immediately for waiting joiners.
func (s *RegistrationService) Cancel(ctx context.Context, userID, sessionID uint64) (int, error) {
	remaining, err := s.regs.Cancel(ctx, sessionID, userID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, queue.ActivityEvent{
		Type:       queue.EventRegistrationCancelled,
		SessionID:  sessionID,
		UserID:     userID,
		Count:      remaining,
		OccurredAt: s.now().Format(time.RFC3339),
	})
	return remaining, nil
}

// Participants returns the session's participant list, ordered by join
// time, or by crew role then join time when byRole is set.
func (s *RegistrationService) Participants(ctx context.Context, sessionID uint64, byRole bool) ([]repository.Participant, error) {
	return s.regs.ListParticipants(ctx, sessionID, byRole)
}

func (s *RegistrationService) publish(ctx context.Context, ev queue.ActivityEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActivity(ctx, ev); err != nil {
		log.Printf("registration: publish %s event failed: %v", ev.Type, err)
	}
}
