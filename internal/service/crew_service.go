package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/repository"
)

// CrewStore is the storage contract for crews.  The implementation
// must run each operation atomically, including the paired authority
// check (UpdateByLeader, DeleteByLeader) and the crew-plus-leader
// creation.
type CrewStore interface {
	CreateWithLeader(ctx context.Context, c *model.Crew, creatorID uint64) (*model.Membership, error)
	GetByID(ctx context.Context, id uint64) (*model.Crew, error)
	UpdateByLeader(ctx context.Context, crewID, actorID uint64, upd repository.CrewUpdate) error
	DeleteByLeader(ctx context.Context, crewID, actorID uint64) error
}

// MembershipStore is the storage contract for crew memberships.  Every
// mutation is a serialized unit of work: concurrent leadership
// transfers or role changes on one crew are totally ordered, so the
// exactly-one-leader invariant holds at every committed state.
type MembershipStore interface {
	Join(ctx context.Context, userID, crewID uint64) (*model.Membership, error)
	Leave(ctx context.Context, userID, crewID uint64) error
	TransferLeadership(ctx context.Context, crewID, actorID, targetID uint64) error
	ChangeRole(ctx context.Context, crewID, actorID, targetID uint64, newRole model.Role) (model.Role, model.Role, error)
	Kick(ctx context.Context, crewID, actorID, targetID uint64) error
	GetByUserAndCrew(ctx context.Context, userID, crewID uint64) (*model.Membership, error)
	ListByCrew(ctx context.Context, crewID uint64, role *model.Role) ([]repository.CrewMember, error)
	CountsByRole(ctx context.Context, crewID uint64) (map[model.Role]int, error)
}

// Crew attribute limits, matching the column sizes.
const (
	maxCrewNameLen = 100
	maxCrewDescLen = 1000
)

// ErrCrewNameRequired is returned when a crew is created without a name.
var ErrCrewNameRequired = errors.New("crew name is required")

// ErrCrewNameTooLong is returned when a crew name exceeds the column size.
var ErrCrewNameTooLong = errors.New("crew name exceeds maximum length")

// CrewService implements the crew membership operations: crew
// lifecycle, joining and leaving, leadership transfer, role changes and
// kicks, plus the member projections.
type CrewService struct {
	crews   CrewStore
	members MembershipStore
}

// NewCrewService constructs a CrewService.
func NewCrewService(crews CrewStore, members MembershipStore) *CrewService {
	return &CrewService{crews: crews, members: members}
}

// CreateCrew creates a crew and its Leader membership for the creator
// in one step.  The creator must resolve to an existing user.
func (s *CrewService) CreateCrew(ctx context.Context, creatorID uint64, name, description, region, imageURL string) (*model.Crew, *model.Membership, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, ErrCrewNameRequired
	}
	if len(name) > maxCrewNameLen {
		return nil, nil, ErrCrewNameTooLong
	}
	if len(description) > maxCrewDescLen {
		description = description[:maxCrewDescLen]
	}
	crew := &model.Crew{Name: name, Description: description, Region: region, ImageURL: imageURL}
	m, err := s.crews.CreateWithLeader(ctx, crew, creatorID)
	if err != nil {
		return nil, nil, err
	}
	return crew, m, nil
}

// GetCrew returns an active crew.
func (s *CrewService) GetCrew(ctx context.Context, crewID uint64) (*model.Crew, error) {
	return s.crews.GetByID(ctx, crewID)
}

// UpdateCrew applies attribute changes; only the crew's Leader may call it.
func (s *CrewService) UpdateCrew(ctx context.Context, crewID, actorID uint64, upd repository.CrewUpdate) error {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return ErrCrewNameRequired
		}
		if len(trimmed) > maxCrewNameLen {
			return ErrCrewNameTooLong
		}
		upd.Name = &trimmed
	}
	return s.crews.UpdateByLeader(ctx, crewID, actorID, upd)
}

// DeleteCrew soft-deletes a crew; Leader only.
func (s *CrewService) DeleteCrew(ctx context.Context, crewID, actorID uint64) error {
	return s.crews.DeleteByLeader(ctx, crewID, actorID)
}

// JoinCrew adds the user to the crew as a plain member.
func (s *CrewService) JoinCrew(ctx context.Context, userID, crewID uint64) (*model.Membership, error) {
	return s.members.Join(ctx, userID, crewID)
}

// LeaveCrew removes the user's membership.  The Leader cannot leave.
func (s *CrewService) LeaveCrew(ctx context.Context, userID, crewID uint64) error {
	return s.members.Leave(ctx, userID, crewID)
}

// TransferLeadership hands the crew from the current leader to the
// target member as one atomic transition.
func (s *CrewService) TransferLeadership(ctx context.Context, crewID, actorID, targetID uint64) error {
	return s.members.TransferLeadership(ctx, crewID, actorID, targetID)
}

// ChangeRole sets the target member's role.  The role text funnels
// through model.ParseRole; assigning LEADER this way is rejected by the
// store (leadership only moves via TransferLeadership).
func (s *CrewService) ChangeRole(ctx context.Context, crewID, actorID, targetID uint64, roleText string) (model.Role, model.Role, error) {
	role, err := model.ParseRole(roleText)
	if err != nil {
		return "", "", err
	}
	return s.members.ChangeRole(ctx, crewID, actorID, targetID, role)
}

// KickMember removes the target member from the crew; Leader only, and
// the Leader itself cannot be kicked.
func (s *CrewService) KickMember(ctx context.Context, crewID, actorID, targetID uint64) error {
	return s.members.Kick(ctx, crewID, actorID, targetID)
}

// ListMembers returns the crew's members ordered Leader, Staff, Member.
// roleFilter narrows to one role when non-empty and must parse.
func (s *CrewService) ListMembers(ctx context.Context, crewID uint64, roleFilter string) ([]repository.CrewMember, error) {
	if _, err := s.crews.GetByID(ctx, crewID); err != nil {
		return nil, err
	}
	var role *model.Role
	if strings.TrimSpace(roleFilter) != "" {
		r, err := model.ParseRole(roleFilter)
		if err != nil {
			return nil, err
		}
		role = &r
	}
	return s.members.ListByCrew(ctx, crewID, role)
}

// MemberCounts returns the per-role member counts for a crew.
func (s *CrewService) MemberCounts(ctx context.Context, crewID uint64) (map[model.Role]int, error) {
	if _, err := s.crews.GetByID(ctx, crewID); err != nil {
		return nil, err
	}
	return s.members.CountsByRole(ctx, crewID)
}

// RoleOf returns the acting user's membership in a crew, or
// ErrMembershipNotFound.
func (s *CrewService) RoleOf(ctx context.Context, userID, crewID uint64) (*model.Membership, error) {
	return s.members.GetByUserAndCrew(ctx, userID, crewID)
}
