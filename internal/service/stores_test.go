package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/queue"
	"github.com/iliyamo/run-crew/internal/repository"
)

// In-memory store fakes honoring the same contracts as the MySQL
// repositories: the same sentinel errors, and each operation a single
// serialized unit of work under the store mutex.

type fakeCrewStore struct {
	mu     sync.Mutex
	nextID uint64
	crews  map[uint64]*model.Crew
	// membership store used to create the leader row and to answer
	// leader checks, mirroring the crew repository's combined tx.
	members *fakeMembershipStore
}

func newFakeCrewStore(members *fakeMembershipStore) *fakeCrewStore {
	return &fakeCrewStore{crews: map[uint64]*model.Crew{}, members: members}
}

func (f *fakeCrewStore) CreateWithLeader(_ context.Context, c *model.Crew, creatorID uint64) (*model.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now().UTC()
	f.crews[c.ID] = c
	return f.members.put(creatorID, c.ID, model.RoleLeader), nil
}

func (f *fakeCrewStore) GetByID(_ context.Context, id uint64) (*model.Crew, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.crews[id]
	if !ok || c.IsDeleted() {
		return nil, repository.ErrCrewNotFound
	}
	return c, nil
}

func (f *fakeCrewStore) UpdateByLeader(ctx context.Context, crewID, actorID uint64, upd repository.CrewUpdate) error {
	if err := f.requireLeader(ctx, crewID, actorID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.crews[crewID]
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Region != nil {
		c.Region = *upd.Region
	}
	if upd.ImageURL != nil {
		c.ImageURL = *upd.ImageURL
	}
	return nil
}

func (f *fakeCrewStore) DeleteByLeader(ctx context.Context, crewID, actorID uint64) error {
	if err := f.requireLeader(ctx, crewID, actorID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	f.crews[crewID].DeletedAt = &now
	return nil
}

func (f *fakeCrewStore) requireLeader(ctx context.Context, crewID, actorID uint64) error {
	if _, err := f.GetByID(ctx, crewID); err != nil {
		return err
	}
	m, err := f.members.GetByUserAndCrew(ctx, actorID, crewID)
	if err != nil {
		return repository.ErrNotLeader
	}
	if m.Role != model.RoleLeader {
		return repository.ErrNotLeader
	}
	return nil
}

type fakeMembershipStore struct {
	mu     sync.Mutex
	nextID uint64
	// keyed by crewID, then userID
	rows map[uint64]map[uint64]*model.Membership
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{rows: map[uint64]map[uint64]*model.Membership{}}
}

// put creates a membership without guard checks; callers hold no lock.
func (f *fakeMembershipStore) put(userID, crewID uint64, role model.Role) *model.Membership {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := &model.Membership{ID: f.nextID, UserID: userID, CrewID: crewID, Role: role, JoinedAt: time.Now().UTC()}
	if f.rows[crewID] == nil {
		f.rows[crewID] = map[uint64]*model.Membership{}
	}
	f.rows[crewID][userID] = m
	return m
}

func (f *fakeMembershipStore) Join(_ context.Context, userID, crewID uint64) (*model.Membership, error) {
	f.mu.Lock()
	if f.rows[crewID] != nil && f.rows[crewID][userID] != nil {
		f.mu.Unlock()
		return nil, repository.ErrMembershipExists
	}
	f.mu.Unlock()
	return f.put(userID, crewID, model.RoleMember), nil
}

func (f *fakeMembershipStore) Leave(_ context.Context, userID, crewID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[crewID][userID]
	if m == nil {
		return repository.ErrMembershipNotFound
	}
	if m.Role == model.RoleLeader {
		return repository.ErrLeaderCannotLeave
	}
	delete(f.rows[crewID], userID)
	return nil
}

func (f *fakeMembershipStore) TransferLeadership(_ context.Context, crewID, actorID, targetID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor := f.rows[crewID][actorID]
	if actor == nil || actor.Role != model.RoleLeader {
		return repository.ErrNotLeader
	}
	if actorID == targetID {
		return nil
	}
	target := f.rows[crewID][targetID]
	if target == nil {
		return repository.ErrMembershipNotFound
	}
	// Both writes inside one critical section, like the repository's tx.
	actor.Role = model.RoleMember
	target.Role = model.RoleLeader
	return nil
}

func (f *fakeMembershipStore) ChangeRole(_ context.Context, crewID, actorID, targetID uint64, newRole model.Role) (model.Role, model.Role, error) {
	if newRole == model.RoleLeader {
		return "", "", repository.ErrTargetIsLeader
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	actor := f.rows[crewID][actorID]
	if actor == nil {
		return "", "", repository.ErrMembershipNotFound
	}
	if actor.Role != model.RoleLeader {
		return "", "", repository.ErrNotLeader
	}
	target := f.rows[crewID][targetID]
	if target == nil {
		return "", "", repository.ErrMembershipNotFound
	}
	if target.Role == model.RoleLeader {
		return "", "", repository.ErrTargetIsLeader
	}
	old := target.Role
	target.Role = newRole
	return old, newRole, nil
}

func (f *fakeMembershipStore) Kick(_ context.Context, crewID, actorID, targetID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor := f.rows[crewID][actorID]
	if actor == nil {
		return repository.ErrMembershipNotFound
	}
	if actor.Role != model.RoleLeader {
		return repository.ErrNotLeader
	}
	target := f.rows[crewID][targetID]
	if target == nil {
		return repository.ErrMembershipNotFound
	}
	if target.Role == model.RoleLeader {
		return repository.ErrTargetIsLeader
	}
	delete(f.rows[crewID], targetID)
	return nil
}

func (f *fakeMembershipStore) GetByUserAndCrew(_ context.Context, userID, crewID uint64) (*model.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[crewID][userID]
	if m == nil {
		return nil, repository.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipStore) ListByCrew(_ context.Context, crewID uint64, role *model.Role) ([]repository.CrewMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.CrewMember
	for _, m := range f.rows[crewID] {
		if role != nil && m.Role != *role {
			continue
		}
		out = append(out, repository.CrewMember{UserID: m.UserID, Role: m.Role})
	}
	sort.Slice(out, func(i, j int) bool {
		if p, q := out[i].Role.SortPriority(), out[j].Role.SortPriority(); p != q {
			return p < q
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (f *fakeMembershipStore) CountsByRole(_ context.Context, crewID uint64) (map[model.Role]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[model.Role]int{model.RoleLeader: 0, model.RoleStaff: 0, model.RoleMember: 0}
	for _, m := range f.rows[crewID] {
		counts[m.Role]++
	}
	return counts, nil
}

// leaderCount reports how many Leader rows a crew has, for invariant
// assertions.
func (f *fakeMembershipStore) leaderCount(crewID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.rows[crewID] {
		if m.Role == model.RoleLeader {
			n++
		}
	}
	return n
}

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   uint64
	sessions map[uint64]*model.Session
	regs     *fakeRegistrationStore
}

func newFakeSessionStore() *fakeSessionStore {
	f := &fakeSessionStore{sessions: map[uint64]*model.Session{}}
	f.regs = &fakeRegistrationStore{sessions: f, rows: map[uint64]map[uint64]time.Time{}}
	return f
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	s.Status = model.SessionOpen
	s.CreatedAt = time.Now().UTC()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.IsDeleted() {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Update(_ context.Context, id uint64, upd repository.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.IsDeleted() {
		return repository.ErrSessionNotFound
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.RegisterBy != nil {
		s.RegisterBy = *upd.RegisterBy
	}
	if upd.MaxParticipantCount != nil {
		s.MaxParticipantCount = *upd.MaxParticipantCount
	}
	return nil
}

func (f *fakeSessionStore) SoftDelete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.IsDeleted() {
		return repository.ErrSessionNotFound
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	return nil
}

func (f *fakeSessionStore) ListByCrew(_ context.Context, crewID uint64, status *model.SessionStatus) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, s := range f.sessions {
		if s.CrewID != crewID || s.IsDeleted() {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.Status == model.SessionOpen && !s.IsDeleted() && s.RegisterBy.Before(now) {
			s.Status = model.SessionClosed
			n++
		}
	}
	return n, nil
}

type fakeRegistrationStore struct {
	mu       sync.Mutex
	nextID   uint64
	sessions *fakeSessionStore
	// keyed by sessionID, then userID
	rows map[uint64]map[uint64]time.Time
}

func (f *fakeRegistrationStore) Join(_ context.Context, sessionID, userID uint64, now time.Time) (int, uint32, error) {
	// One critical section covering window, duplicate and capacity
	// checks plus the insert, matching the repository's locked tx.
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions.mu.Lock()
	s, ok := f.sessions.sessions[sessionID]
	if !ok || s.IsDeleted() {
		f.sessions.mu.Unlock()
		return 0, 0, repository.ErrSessionNotFound
	}
	joinable := s.JoinableAt(now)
	capacity := s.MaxParticipantCount
	f.sessions.mu.Unlock()
	if !joinable {
		return 0, 0, repository.ErrSessionClosed
	}
	if _, dup := f.rows[sessionID][userID]; dup {
		return 0, 0, repository.ErrAlreadyJoined
	}
	if len(f.rows[sessionID]) >= int(capacity) {
		return 0, 0, repository.ErrSessionFull
	}
	if f.rows[sessionID] == nil {
		f.rows[sessionID] = map[uint64]time.Time{}
	}
	f.nextID++
	f.rows[sessionID][userID] = now
	return len(f.rows[sessionID]), capacity, nil
}

func (f *fakeRegistrationStore) Cancel(_ context.Context, sessionID, userID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[sessionID][userID]; !ok {
		return 0, repository.ErrNotParticipant
	}
	delete(f.rows[sessionID], userID)
	return len(f.rows[sessionID]), nil
}

func (f *fakeRegistrationStore) ListParticipants(_ context.Context, sessionID uint64, _ bool) ([]repository.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Participant
	for uid := range f.rows[sessionID] {
		out = append(out, repository.Participant{UserID: uid})
	}
	return out, nil
}

type fakeInterestStore struct {
	mu   sync.Mutex
	rows map[uint64]map[uint64]bool
}

func newFakeInterestStore() *fakeInterestStore {
	return &fakeInterestStore{rows: map[uint64]map[uint64]bool{}}
}

func (f *fakeInterestStore) Like(_ context.Context, sessionID, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[sessionID][userID] {
		return repository.ErrAlreadyLiked
	}
	if f.rows[sessionID] == nil {
		f.rows[sessionID] = map[uint64]bool{}
	}
	f.rows[sessionID][userID] = true
	return nil
}

func (f *fakeInterestStore) Unlike(_ context.Context, sessionID, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rows[sessionID][userID] {
		return repository.ErrInterestNotFound
	}
	delete(f.rows[sessionID], userID)
	return nil
}

func (f *fakeInterestStore) CountBySession(_ context.Context, sessionID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[sessionID]), nil
}

func (f *fakeInterestStore) HasLiked(_ context.Context, sessionID, userID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[sessionID][userID], nil
}

// recordingPublisher captures published activity events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (p *recordingPublisher) PublishActivity(_ context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) byType(t string) []queue.ActivityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.ActivityEvent
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
