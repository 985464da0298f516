package models

import (
	"time"

	"gorm.io/gorm"
)

// ContentType discriminates the content item an engagement row points at
type ContentType string

const (
	ContentPost  ContentType = "post"
	ContentVideo ContentType = "video"
)

// Valid reports whether t names a known content table
func (t ContentType) Valid() bool {
	return t == ContentPost || t == ContentVideo
}

// Table returns the table holding items of this type
func (t ContentType) Table() string {
	if t == ContentVideo {
		return "videos"
	}
	return "posts"
}

// OwnerColumn returns the column naming the item's owner
func (t ContentType) OwnerColumn() string {
	if t == ContentVideo {
		return "author_id"
	}
	return "user_id"
}

// Post is an image post with an optional caption
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"not null;index" json:"custom_user_id"`
	User    User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Image   string `gorm:"not null" json:"image"`
	Content string `gorm:"size:1000" json:"content"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Video is a short vlog clip. Duration and thumbnail come from server-side probing.
type Video struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	AuthorID     string `gorm:"not null;index" json:"custom_user_id"`
	Author       User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Title        string `gorm:"size:200;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	VideoURL     string `gorm:"not null" json:"video"`
	ThumbnailURL string `json:"video_thumb"`
	DurationMS   int64  `json:"duration_ms"`
	SizeBytes    int64  `json:"size_bytes"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Comment is a comment on a post or a video
type Comment struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ContentType ContentType `gorm:"size:16;not null;index:idx_comments_target" json:"content_type"`
	ContentID   uint        `gorm:"not null;index:idx_comments_target" json:"content_id"`
	UserID      string      `gorm:"not null;index" json:"custom_user_id"`
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Content     string      `gorm:"size:1000;not null" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Like is unique per (content, user)
type Like struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ContentType ContentType `gorm:"size:16;not null;uniqueIndex:idx_likes_unique" json:"content_type"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_likes_unique" json:"content_id"`
	UserID      string      `gorm:"not null;uniqueIndex:idx_likes_unique;index" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

// LikeCounter caches COUNT(likes) for one content item
type LikeCounter struct {
	ID          uint        `gorm:"primaryKey" json:"-"`
	ContentType ContentType `gorm:"size:16;not null;uniqueIndex:idx_like_counters_target" json:"content_type"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_like_counters_target" json:"content_id"`
	Count       int64       `gorm:"not null;default:0" json:"count"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CommentCounter caches COUNT(comments) for one content item
type CommentCounter struct {
	ID          uint        `gorm:"primaryKey" json:"-"`
	ContentType ContentType `gorm:"size:16;not null;uniqueIndex:idx_comment_counters_target" json:"content_type"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_comment_counters_target" json:"content_id"`
	Count       int64       `gorm:"not null;default:0" json:"count"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// HiddenContent hides one item from one viewer's listings
type HiddenContent struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      string      `gorm:"not null;uniqueIndex:idx_hidden_unique" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ContentType ContentType `gorm:"size:16;not null;uniqueIndex:idx_hidden_unique" json:"content_type"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_hidden_unique" json:"content_id"`
	CreatedAt   time.Time   `json:"created_at"`
}
