package models

import (
	"time"
)

// Reward is something group members can exchange coins for.
type Reward struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	GroupID       string    `gorm:"type:uuid;not null;index" json:"group_id"`
	Description   string    `gorm:"not null" json:"description"`
	RequiredCoins int       `gorm:"not null" json:"required_coins"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RewardTransaction records one redemption event.
type RewardTransaction struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	RewardID  string    `gorm:"type:uuid;not null;index" json:"reward_id"`
	Timestamp time.Time `json:"timestamp"`
}
