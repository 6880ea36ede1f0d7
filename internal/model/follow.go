package model

import (
	"time"
)

// Follow 关注关系（follower 关注 following）
type Follow struct {
	FollowerID  string `gorm:"primaryKey;type:varchar(36)"`
	FollowingID string `gorm:"primaryKey;type:varchar(36)"`
	// 复合主键 (follower_id, following_id)，同一对至多一条边
	CreatedAt time.Time `gorm:"index:idx_follow_created"`
}

func (Follow) TableName() string { return "follows" }
