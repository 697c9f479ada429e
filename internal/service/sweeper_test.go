package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/queue"
	"github.com/iliyamo/run-crew/internal/repository"
)

func seedSession(t *testing.T, sessions *fakeSessionStore, registerBy time.Time) *model.Session {
	t.Helper()
	s := &model.Session{CrewID: 1, Name: "Run", RegisterBy: registerBy, MaxParticipantCount: 5}
	require.NoError(t, sessions.Create(context.Background(), s))
	return s
}

func TestSweepClosesExpiredSessions(t *testing.T) {
	sessions := newFakeSessionStore()
	expired := seedSession(t, sessions, testNow.Add(-time.Minute))
	atDeadline := seedSession(t, sessions, testNow)
	future := seedSession(t, sessions, testNow.Add(time.Hour))

	pub := &recordingPublisher{}
	sw := NewSweeper(sessions, pub, func() time.Time { return testNow })

	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := sessions.GetByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, got.Status)

	// register_by strictly before now is the sweep condition; the join
	// window excludes the deadline instant, so a session at exactly the
	// deadline is unjoinable but swept on the next tick.
	got, err = sessions.GetByID(context.Background(), atDeadline.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionOpen, got.Status)
	assert.False(t, got.JoinableAt(testNow))

	got, err = sessions.GetByID(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionOpen, got.Status)

	events := pub.byType(queue.EventSessionsClosed)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].Closed)
}

func TestSweepIsIdempotent(t *testing.T) {
	sessions := newFakeSessionStore()
	seedSession(t, sessions, testNow.Add(-time.Hour))

	pub := &recordingPublisher{}
	sw := NewSweeper(sessions, pub, func() time.Time { return testNow })

	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// No event for an empty sweep.
	assert.Len(t, pub.byType(queue.EventSessionsClosed), 1)
}

func TestSweepSkipsDeletedSessions(t *testing.T) {
	sessions := newFakeSessionStore()
	s := seedSession(t, sessions, testNow.Add(-time.Hour))
	require.NoError(t, sessions.SoftDelete(context.Background(), s.ID))

	sw := NewSweeper(sessions, nil, func() time.Time { return testNow })
	n, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// A session closed by the sweeper immediately rejects joins, because
// the admission check and the sweep run on the same clock.
func TestSweepAndJoinAgreeOnDeadline(t *testing.T) {
	sessions := newFakeSessionStore()
	s := seedSession(t, sessions, testNow.Add(-time.Second))

	clock := func() time.Time { return testNow }
	sw := NewSweeper(sessions, nil, clock)
	regSvc := NewRegistrationService(sessions.regs, nil, clock)

	_, err := regSvc.Join(context.Background(), 10, s.ID)
	assert.ErrorIs(t, err, repository.ErrSessionClosed)

	_, err = sw.Sweep(context.Background())
	require.NoError(t, err)

	_, err = regSvc.Join(context.Background(), 10, s.ID)
	assert.ErrorIs(t, err, repository.ErrSessionClosed)
}
