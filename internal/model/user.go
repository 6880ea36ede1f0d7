package model

import (
	"time"
)

// User 用户档案（auth 身份由独立服务持有，这里只存外部 id）
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthUserID  string    `gorm:"type:varchar(64);uniqueIndex:ux_users_auth;not null" json:"authUserId"`
	Username    string    `gorm:"type:varchar(32);uniqueIndex:ux_users_username;not null" json:"username"`
	DisplayName string    `gorm:"type:varchar(64)" json:"displayName"`
	Bio         string    `gorm:"type:text" json:"bio"`
	AvatarURL   string    `gorm:"type:varchar(512)" json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
