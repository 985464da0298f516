package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAvatar is the avatar every account starts with
const DefaultAvatar = "images/avatar.jpeg"

// User is an account known to the identity provider
type User struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string  `gorm:"uniqueIndex;size:35;not null" json:"username"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	PhoneNumber  *string `gorm:"uniqueIndex;size:13" json:"phone_number"`
	Avatar       string  `gorm:"default:images/avatar.jpeg" json:"avatar"`
	IsStaff      bool    `gorm:"default:false" json:"is_staff"`
	IsActive     bool    `gorm:"default:true" json:"is_active"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordReset holds a one-time code secret for the forget-password flow
type PasswordReset struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Secret    string    `gorm:"not null" json:"-"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	return nil
}

func (r *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
