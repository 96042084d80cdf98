package models

import "time"

type UserFollow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"column:follower_id;not null;uniqueIndex:idx_user_follows_pair;check:chk_user_follows_no_self,follower_id <> following_id" json:"follower_id"`
	FollowingID uint      `gorm:"column:following_id;not null;uniqueIndex:idx_user_follows_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"following,omitempty"`
}

type FollowStats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
