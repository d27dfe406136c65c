package models

import (
	"time"
)

// User is the account record for a family member. A dependent user (e.g. a
// child profile) carries a MasterUserID pointing at the non-dependent user
// that manages it.
type User struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	FullName        string  `gorm:"not null" json:"full_name"`
	Email           string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string  `gorm:"not null" json:"-"`
	IsDependent     bool    `gorm:"default:false" json:"is_dependent"`
	MasterUserID    *string `gorm:"type:uuid;index" json:"master_user_id,omitempty"`
	ProfilePhotoURL string  `gorm:"type:text" json:"profile_photo_url,omitempty"`

	// Reset tokens for the forgot-password flow
	ResetToken          *string    `gorm:"index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
