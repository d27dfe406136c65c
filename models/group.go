package models

import (
	"time"
)

// Group is a household/family circle. Membership is tracked through explicit
// GroupMember rows rather than a navigation collection, so joins stay visible
// in the query layer.
type Group struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	PhotoURL    string    `gorm:"type:text;default:'/uploads/group-photos/default-group.png'" json:"photo_url"`
	CreatedByID string    `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMember is one (group, user) membership row. The group creator always
// has a row of their own.
type GroupMember struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	GroupID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_group_user" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
