package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Defaults for profiles first seen through a payload without user details.
const (
	UnknownEmail    = "unknown@example.com"
	UnknownUsername = "unknown_user"
)

// UserProfile is the local copy of a Whop user.
type UserProfile struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	WhopUserID        string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_user_profiles_whop_user_id" json:"whop_user_id"`
	Email             string    `gorm:"type:varchar(255);not null" json:"email"`
	Username          string    `gorm:"type:varchar(255);not null" json:"username"`
	ProfilePictureURL *string   `gorm:"type:text" json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Email == "" {
		p.Email = UnknownEmail
	}
	if p.Username == "" {
		p.Username = UnknownUsername
	}
	return nil
}
