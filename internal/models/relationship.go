package models

import "time"

// Follow is a directed subscription edge
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  string    `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"follower_id"`
	Follower    User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	FollowingID string    `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	Following   User      `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBlock is a directed block edge. Visibility treats it as mutual.
type UserBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID string    `gorm:"not null;uniqueIndex:idx_user_blocks_pair;index" json:"blocker_id"`
	Blocker   User      `gorm:"foreignKey:BlockerID;constraint:OnDelete:CASCADE" json:"-"`
	BlockedID string    `gorm:"not null;uniqueIndex:idx_user_blocks_pair;index" json:"blocked_id"`
	Blocked   User      `gorm:"foreignKey:BlockedID;constraint:OnDelete:CASCADE" json:"blocked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the block table name stable
func (UserBlock) TableName() string {
	return "user_blocks"
}
