package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/queue"
	"github.com/iliyamo/run-crew/internal/repository"
)

var testNow = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func newRegFixture(capacity uint32, registerBy time.Time) (*RegistrationService, *fakeSessionStore, *recordingPublisher, uint64) {
	sessions := newFakeSessionStore()
	s := &model.Session{
		CrewID:              1,
		HostUserID:          1,
		Name:                "Sunday Long Run",
		SessionAt:           registerBy.Add(2 * time.Hour),
		RegisterBy:          registerBy,
		MaxParticipantCount: capacity,
	}
	_ = sessions.Create(context.Background(), s)
	pub := &recordingPublisher{}
	svc := NewRegistrationService(sessions.regs, pub, func() time.Time { return testNow })
	return svc, sessions, pub, s.ID
}

func TestJoinWithinCapacity(t *testing.T) {
	svc, _, pub, sid := newRegFixture(3, testNow.Add(time.Hour))

	res, err := svc.Join(context.Background(), 10, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, uint32(3), res.Capacity)

	res, err = svc.Join(context.Background(), 11, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	events := pub.byType(queue.EventRegistrationConfirmed)
	require.Len(t, events, 2)
	assert.Equal(t, sid, events[0].SessionID)
}

func TestJoinDuplicate(t *testing.T) {
	svc, _, _, sid := newRegFixture(3, testNow.Add(time.Hour))

	_, err := svc.Join(context.Background(), 10, sid)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 10, sid)
	assert.ErrorIs(t, err, repository.ErrAlreadyJoined)
}

func TestJoinFullSession(t *testing.T) {
	svc, _, _, sid := newRegFixture(1, testNow.Add(time.Hour))

	_, err := svc.Join(context.Background(), 10, sid)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 11, sid)
	assert.ErrorIs(t, err, repository.ErrSessionFull)
}

func TestJoinAfterDeadline(t *testing.T) {
	// Deadline exactly at the shared clock's now: the window is exclusive.
	svc, _, pub, sid := newRegFixture(3, testNow)
	_, err := svc.Join(context.Background(), 10, sid)
	assert.ErrorIs(t, err, repository.ErrSessionClosed)
	assert.Empty(t, pub.byType(queue.EventRegistrationConfirmed))

	svc, _, _, sid = newRegFixture(3, testNow.Add(-time.Minute))
	_, err = svc.Join(context.Background(), 10, sid)
	assert.ErrorIs(t, err, repository.ErrSessionClosed)
}

func TestJoinMissingSession(t *testing.T) {
	svc, _, _, _ := newRegFixture(3, testNow.Add(time.Hour))
	_, err := svc.Join(context.Background(), 10, 999)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

// N concurrent joins racing for a capacity-C session: exactly C succeed
// and the rest fail with SessionFull, at every interleaving.
func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const workers = 50
	const capacity = 3
	svc, sessions, pub, sid := newRegFixture(capacity, testNow.Add(time.Hour))

	var ok, full int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.Join(context.Background(), uid, sid)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, repository.ErrSessionFull):
				atomic.AddInt64(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), ok)
	assert.Equal(t, int64(workers-capacity), full)

	participants, err := sessions.regs.ListParticipants(context.Background(), sid, false)
	require.NoError(t, err)
	assert.Len(t, participants, capacity)
	assert.Len(t, pub.byType(queue.EventRegistrationConfirmed), capacity)
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _, pub, sid := newRegFixture(1, testNow.Add(time.Hour))

	_, err := svc.Join(context.Background(), 10, sid)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 11, sid)
	require.ErrorIs(t, err, repository.ErrSessionFull)

	remaining, err := svc.Cancel(context.Background(), 10, sid)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	res, err := svc.Join(context.Background(), 11, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	assert.Len(t, pub.byType(queue.EventRegistrationCancelled), 1)
}

func TestCancelWithoutRegistration(t *testing.T) {
	svc, _, _, sid := newRegFixture(3, testNow.Add(time.Hour))
	_, err := svc.Cancel(context.Background(), 10, sid)
	assert.ErrorIs(t, err, repository.ErrNotParticipant)
}

func TestJoinSurvivesPublisherless(t *testing.T) {
	sessions := newFakeSessionStore()
	s := &model.Session{CrewID: 1, RegisterBy: testNow.Add(time.Hour), MaxParticipantCount: 2}
	_ = sessions.Create(context.Background(), s)

	svc := NewRegistrationService(sessions.regs, nil, func() time.Time { return testNow })
	res, err := svc.Join(context.Background(), 10, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}
