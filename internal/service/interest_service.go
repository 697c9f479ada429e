package service

import "context"

// InterestStore is the storage contract for session likes.  Uniqueness
// per (session, user) is the only guarantee required.
type InterestStore interface {
	Like(ctx context.Context, sessionID, userID uint64) error
	Unlike(ctx context.Context, sessionID, userID uint64) error
	CountBySession(ctx context.Context, sessionID uint64) (int, error)
	HasLiked(ctx context.Context, sessionID, userID uint64) (bool, error)
}

// InterestService implements session likes.
type InterestService struct {
	interests InterestStore
}

// NewInterestService constructs an InterestService.
func NewInterestService(interests InterestStore) *InterestService {
	return &InterestService{interests: interests}
}

// Like records the user's interest in a session and returns the new
// like count.
func (s *InterestService) Like(ctx context.Context, userID, sessionID uint64) (int, error) {
	if err := s.interests.Like(ctx, sessionID, userID); err != nil {
		return 0, err
	}
	return s.interests.CountBySession(ctx, sessionID)
}

// Unlike removes the user's like and returns the new like count.
func (s *InterestService) Unlike(ctx context.Context, userID, sessionID uint64) (int, error) {
	if err := s.interests.Unlike(ctx, sessionID, userID); err != nil {
		return 0, err
	}
	return s.interests.CountBySession(ctx, sessionID)
}

// Status reports whether the user has liked the session along with the
// current like count.
func (s *InterestService) Status(ctx context.Context, userID, sessionID uint64) (bool, int, error) {
	liked, err := s.interests.HasLiked(ctx, sessionID, userID)
	if err != nil {
		return false, 0, err
	}
	count, err := s.interests.CountBySession(ctx, sessionID)
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}
