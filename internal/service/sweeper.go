package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/run-crew/internal/queue"
)

// SessionCloser is the slice of SessionStore the sweeper needs.
type SessionCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper closes sessions whose registration window has elapsed.  It is
// stateless and owns no timer: the host process invokes Sweep on a
// fixed cadence.  Sweeping twice in a row is harmless; the second run
// matches zero rows.
type Sweeper struct {
	sessions  SessionCloser
	publisher EventPublisher
	now       func() time.Time
}

// NewSweeper constructs a Sweeper.  publisher may be nil.  now defaults
// to the wall clock and must match the clock admission checks use.
func NewSweeper(sessions SessionCloser, publisher EventPublisher, now func() time.Time) *Sweeper {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{sessions: sessions, publisher: publisher, now: now}
}

// Sweep runs one pass and returns the number of sessions transitioned
// Open -> Closed.  Zero matches is a normal outcome, not an error.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.sessions.CloseExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("sweeper: closed %d expired session(s)", n)
		if s.publisher != nil {
			ev := queue.ActivityEvent{
				Type:       queue.EventSessionsClosed,
				Closed:     n,
				OccurredAt: now.Format(time.RFC3339),
			}
			if err := s.publisher.PublishActivity(ctx, ev); err != nil {
				log.Printf("sweeper: publish %s event failed: %v", ev.Type, err)
			}
		}
	}
	return n, nil
}
