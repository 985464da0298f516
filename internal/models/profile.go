package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the public face of a user. Exactly one per user.
type Profile struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio           string `gorm:"type:text" json:"bio"`
	Avatar        string `json:"avatar"`
	BackgroundPic string `json:"background_pic"`
	HideAvatar    bool   `gorm:"default:false" json:"hide_avatar"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
