package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/profile-service/internal/cache"
	"github.com/d60-Lab/profile-service/internal/events"
	"github.com/d60-Lab/profile-service/internal/model"
	"github.com/d60-Lab/profile-service/internal/repository"
	"github.com/d60-Lab/profile-service/pkg/logger"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
	ErrEmptyID    = errors.New("follower and following ids are required")
)

// Pagination describes one page of a relationship listing.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// FollowPage is a snapshot-consistent page of users plus pagination state.
type FollowPage struct {
	Users      []model.User
	Pagination Pagination
}

// RelationshipService owns the directed follow edges. Follow and unfollow
// are accepted synchronously and executed by background workers: the caller
// gets a 202 before any store work happens, and background failures are
// reported only through the dead-letter topic and logs.
type RelationshipService interface {
	RequestFollow(ctx context.Context, followerID, followingID string) error
	RequestUnfollow(ctx context.Context, followerID, followingID string) error
	ListFollowers(ctx context.Context, userID string, page, limit int) (*FollowPage, error)
	ListFollowing(ctx context.Context, userID string, page, limit int) (*FollowPage, error)
	// Start launches the background workers; the returned func drains them.
	Start(workers int) func(context.Context) error
}

type relationshipService struct {
	followRepo  repository.FollowRepository
	invalidator cache.Invalidator
	publisher   events.Publisher
	runner      *relationRunner
}

func NewRelationshipService(followRepo repository.FollowRepository, invalidator cache.Invalidator, publisher events.Publisher, queueSize int, txTimeout time.Duration) RelationshipService {
	s := &relationshipService{
		followRepo:  followRepo,
		invalidator: invalidator,
		publisher:   publisher,
	}
	s.runner = newRelationRunner(queueSize, txTimeout, s.process, func(job relationJob, reason string) {
		// detached so a slow broker cannot stall the request path
		go s.deadLetter(job.op, job.followerID, job.followingID, errors.New(reason))
	})
	return s
}

func (s *relationshipService) Start(workers int) func(context.Context) error {
	return s.runner.Start(workers)
}

// RequestFollow validates the request and queues the edge creation. A nil
// return promises only that the request was well-formed, not that the edge
// will exist: the client must treat follow state as eventually consistent.
func (s *relationshipService) RequestFollow(ctx context.Context, followerID, followingID string) error {
	if err := validatePair(followerID, followingID); err != nil {
		return err
	}
	s.runner.Enqueue(relationJob{op: opFollow, followerID: followerID, followingID: followingID})
	return nil
}

func (s *relationshipService) RequestUnfollow(ctx context.Context, followerID, followingID string) error {
	if err := validatePair(followerID, followingID); err != nil {
		return err
	}
	s.runner.Enqueue(relationJob{op: opUnfollow, followerID: followerID, followingID: followingID})
	return nil
}

func validatePair(followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrEmptyID
	}
	if followerID == followingID {
		return ErrFollowSelf
	}
	return nil
}

func (s *relationshipService) process(ctx context.Context, job relationJob) {
	switch job.op {
	case opFollow:
		s.processFollow(ctx, job)
	case opUnfollow:
		s.processUnfollow(ctx, job)
	}
}

func (s *relationshipService) processFollow(ctx context.Context, job relationJob) {
	res, err := s.followRepo.CreateEdge(ctx, job.followerID, job.followingID)
	if err != nil {
		// unknown participants are not transient, no retry either way
		s.deadLetter(opFollow, job.followerID, job.followingID, err)
		return
	}

	s.invalidateEdgeKeys(ctx, job.followerID, job.followingID)

	// re-following an existing pair is an idempotent no-op: no event
	if !res.Created {
		return
	}
	evt := events.FollowEvent{
		FollowerID:      res.Follower.ID,
		FollowerAuthID:  res.Follower.AuthUserID,
		FollowingID:     res.Following.ID,
		FollowingAuthID: res.Following.AuthUserID,
		OccurredAt:      time.Now().UTC(),
	}
	key := events.FollowDedupKey(job.followerID, job.followingID)
	if err := s.publisher.Publish(ctx, events.TopicUserFollowed, key, evt); err != nil {
		// edge is committed and stays committed; the lost event goes to DLQ
		s.deadLetter(opFollow, job.followerID, job.followingID, err)
	}
}

func (s *relationshipService) processUnfollow(ctx context.Context, job relationJob) {
	res, err := s.followRepo.RemoveEdge(ctx, job.followerID, job.followingID)
	if err != nil {
		s.deadLetter(opUnfollow, job.followerID, job.followingID, err)
		return
	}

	s.invalidateEdgeKeys(ctx, job.followerID, job.followingID)

	evt := events.FollowEvent{
		FollowerID:      res.Follower.ID,
		FollowerAuthID:  res.Follower.AuthUserID,
		FollowingID:     res.Following.ID,
		FollowingAuthID: res.Following.AuthUserID,
		OccurredAt:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, events.TopicUserUnfollowed, "", evt); err != nil {
		s.deadLetter(opUnfollow, job.followerID, job.followingID, err)
	}
}

// invalidateEdgeKeys drops the four read models touched by an edge change.
// Every key is attempted even when one fails; the cache is never
// authoritative, so failures are logged and swallowed.
func (s *relationshipService) invalidateEdgeKeys(ctx context.Context, followerID, followingID string) {
	keys := []string{
		cache.ProfileKey(followingID),
		cache.ProfileKey(followerID),
		cache.FollowingKey(followerID),
		cache.FollowersKey(followingID),
	}
	for _, key := range keys {
		if err := s.invalidator.Invalidate(ctx, key); err != nil {
			logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// deadLetter is the only failure-reporting surface of the background phase.
// A failure publishing the dead letter itself is logged and swallowed.
func (s *relationshipService) deadLetter(op, followerID, followingID string, cause error) {
	entry := events.DeadLetter{
		Operation:   op,
		FollowerID:  followerID,
		FollowingID: followingID,
		Error:       cause.Error(),
		OccurredAt:  time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.TopicDeadLetter, "", entry); err != nil {
		logger.Error("dead letter publish failed",
			zap.String("op", op),
			zap.String("follower", followerID),
			zap.String("following", followingID),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	logger.Warn("background relation op dead-lettered",
		zap.String("op", op),
		zap.String("follower", followerID),
		zap.String("following", followingID),
		zap.Error(cause))
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, limit int) (*FollowPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit
	users, total, err := s.followRepo.ListFollowers(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return buildPage(users, page, limit, offset, total), nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, limit int) (*FollowPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit
	users, total, err := s.followRepo.ListFollowing(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return buildPage(users, page, limit, offset, total), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func buildPage(users []model.User, page, limit, offset int, total int64) *FollowPage {
	if users == nil {
		users = []model.User{}
	}
	return &FollowPage{
		Users: users,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasMore: int64(offset+len(users)) < total,
		},
	}
}
