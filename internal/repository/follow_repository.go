package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/profile-service/internal/model"
)

// EdgeResult carries the participants of a follow/unfollow transition.
// Created is true only when the edge row actually changed state
// (inserted on follow, deleted on unfollow).
type EdgeResult struct {
	Follower  model.User
	Following model.User
	Created   bool
}

type FollowRepository interface {
	// CreateEdge validates both participants and inserts the edge in one
	// transaction. Re-following an existing pair is a no-op (Created=false).
	CreateEdge(ctx context.Context, followerID, followingID string) (*EdgeResult, error)
	// RemoveEdge deletes the edge in one transaction; a missing edge is
	// ErrEdgeNotFound.
	RemoveEdge(ctx context.Context, followerID, followingID string) (*EdgeResult, error)
	ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
	ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) CreateEdge(ctx context.Context, followerID, followingID string) (*EdgeResult, error) {
	var res EdgeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&res.Follower, "id = ?", followerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.First(&res.Following, "id = ?", followingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// 幂等：重复关注不报错，靠复合主键仲裁并发插入
		f := &model.Follow{FollowerID: followerID, FollowingID: followingID}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(f)
		if ins.Error != nil {
			if errors.Is(ins.Error, gorm.ErrDuplicatedKey) {
				// concurrent insert won the race, same outcome as DoNothing
				res.Created = false
				return nil
			}
			return ins.Error
		}
		res.Created = ins.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *followRepository) RemoveEdge(ctx context.Context, followerID, followingID string) (*EdgeResult, error) {
	var res EdgeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&model.Follow{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return ErrEdgeNotFound
		}
		res.Created = true
		if err := tx.First(&res.Follower, "id = ?", followerID).Error; err != nil {
			return err
		}
		return tx.First(&res.Following, "id = ?", followingID).Error
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListFollowers returns one snapshot-consistent page of users following
// userID, newest edge first, plus the total edge count.
func (r *followRepository) ListFollowers(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	return r.listEdge(ctx, userID, offset, limit, "following_id", "follower_id")
}

// ListFollowing returns one snapshot-consistent page of users that userID
// follows, newest edge first, plus the total edge count.
func (r *followRepository) ListFollowing(ctx context.Context, userID string, offset, limit int) ([]model.User, int64, error) {
	return r.listEdge(ctx, userID, offset, limit, "follower_id", "following_id")
}

func (r *followRepository) listEdge(ctx context.Context, userID string, offset, limit int, whereCol, joinCol string) ([]model.User, int64, error) {
	var (
		users []model.User
		total int64
	)
	// count + page in one transaction so pagination stays consistent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Follow{}).
			Where(whereCol+" = ?", userID).
			Count(&total).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Joins("JOIN follows ON follows."+joinCol+" = users.id").
			Where("follows."+whereCol+" = ?", userID).
			Order("follows.created_at DESC").
			Offset(offset).
			Limit(limit).
			Find(&users).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
