package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/repository"
)

func newSessionFixture(t *testing.T) (*SessionService, *fakeSessionStore, uint64) {
	t.Helper()
	members := newFakeMembershipStore()
	crews := newFakeCrewStore(members)
	crewSvc := NewCrewService(crews, members)

	// User 1 leads the crew, user 2 is staff, user 3 a plain member.
	crew, _, err := crewSvc.CreateCrew(context.Background(), 1, "Trail Crew", "", "", "")
	require.NoError(t, err)
	_, err = crewSvc.JoinCrew(context.Background(), 2, crew.ID)
	require.NoError(t, err)
	_, err = crewSvc.JoinCrew(context.Background(), 3, crew.ID)
	require.NoError(t, err)
	_, _, err = crewSvc.ChangeRole(context.Background(), crew.ID, 1, 2, "staff")
	require.NoError(t, err)

	sessions := newFakeSessionStore()
	return NewSessionService(sessions, members), sessions, crew.ID
}

func validSession() *model.Session {
	return &model.Session{
		Name:                "Tempo Tuesday",
		SessionAt:           testNow.Add(48 * time.Hour),
		RegisterBy:          testNow.Add(24 * time.Hour),
		MaxParticipantCount: 10,
	}
}

func TestCreateSessionByStaffAndLeader(t *testing.T) {
	svc, _, crewID := newSessionFixture(t)

	for _, host := range []uint64{1, 2} {
		s, err := svc.CreateSession(context.Background(), crewID, host, validSession())
		require.NoError(t, err)
		assert.Equal(t, model.SessionOpen, s.Status)
		assert.Equal(t, crewID, s.CrewID)
		assert.Equal(t, host, s.HostUserID)
	}
}

func TestCreateSessionForbiddenForMembersAndOutsiders(t *testing.T) {
	svc, _, crewID := newSessionFixture(t)

	_, err := svc.CreateSession(context.Background(), crewID, 3, validSession())
	assert.ErrorIs(t, err, repository.ErrNotStaff)
	_, err = svc.CreateSession(context.Background(), crewID, 42, validSession())
	assert.ErrorIs(t, err, repository.ErrNotStaff)
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _, crewID := newSessionFixture(t)

	s := validSession()
	s.Name = "  "
	_, err := svc.CreateSession(context.Background(), crewID, 1, s)
	assert.ErrorIs(t, err, ErrSessionNameRequired)

	s = validSession()
	s.MaxParticipantCount = 0
	_, err = svc.CreateSession(context.Background(), crewID, 1, s)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	s = validSession()
	s.RegisterBy = time.Time{}
	_, err = svc.CreateSession(context.Background(), crewID, 1, s)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestUpdateSessionAuthority(t *testing.T) {
	svc, _, crewID := newSessionFixture(t)
	s, err := svc.CreateSession(context.Background(), crewID, 1, validSession())
	require.NoError(t, err)

	name := "Hill Repeats"
	err = svc.UpdateSession(context.Background(), s.ID, 3, repository.SessionUpdate{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotStaff)

	require.NoError(t, svc.UpdateSession(context.Background(), s.ID, 2, repository.SessionUpdate{Name: &name}))
	got, err := svc.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hill Repeats", got.Name)

	var zero uint32
	err = svc.UpdateSession(context.Background(), s.ID, 2, repository.SessionUpdate{MaxParticipantCount: &zero})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestDeleteSessionHostOnly(t *testing.T) {
	svc, _, crewID := newSessionFixture(t)
	s, err := svc.CreateSession(context.Background(), crewID, 2, validSession())
	require.NoError(t, err)

	// Even the crew leader cannot delete someone else's session.
	err = svc.DeleteSession(context.Background(), s.ID, 1)
	assert.ErrorIs(t, err, ErrOnlyHostMayDelete)

	require.NoError(t, svc.DeleteSession(context.Background(), s.ID, 2))
	_, err = svc.GetSession(context.Background(), s.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestListSessionsStatusFilter(t *testing.T) {
	svc, sessions, crewID := newSessionFixture(t)
	open, err := svc.CreateSession(context.Background(), crewID, 1, validSession())
	require.NoError(t, err)

	expired := validSession()
	expired.RegisterBy = testNow.Add(-time.Hour)
	_, err = svc.CreateSession(context.Background(), crewID, 1, expired)
	require.NoError(t, err)
	_, err = sessions.CloseExpired(context.Background(), testNow)
	require.NoError(t, err)

	all, err := svc.ListSessions(context.Background(), crewID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyOpen, err := svc.ListSessions(context.Background(), crewID, "open")
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, open.ID, onlyOpen[0].ID)

	onlyClosed, err := svc.ListSessions(context.Background(), crewID, "closed")
	require.NoError(t, err)
	assert.Len(t, onlyClosed, 1)

	_, err = svc.ListSessions(context.Background(), crewID, "stale")
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}
