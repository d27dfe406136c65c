package models

import (
	"time"
)

// ChallengeStatus tracks whether a challenge still accepts completions.
type ChallengeStatus string

const (
	ChallengeStatusActive  ChallengeStatus = "active"
	ChallengeStatusExpired ChallengeStatus = "expired"
)

// Challenge is a task worth CoinValue coins, created inside a group and
// assigned to members through ChallengeAssignment rows.
type Challenge struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	GroupID     string          `gorm:"type:uuid;not null;index" json:"group_id"`
	CreatedByID string          `gorm:"type:uuid;not null;index" json:"created_by_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	CoinValue   int             `gorm:"not null" json:"coin_value"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	IsDaily     bool            `gorm:"default:false" json:"is_daily"`
	Status      ChallengeStatus `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChallengeAssignment is one (challenge, user) assignment row.
type ChallengeAssignment struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_challenge_user" json:"challenge_id"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_challenge_user" json:"user_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// CompletedChallenge is a member's completion claim, pending validation by
// the challenge creator. At most one claim per (challenge, user) pair.
// CoinsAwarded records that the claim has been paid out; the flag outlives
// IsValidated so flipping the validation back and forth can never pay twice.
type CompletedChallenge struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengeID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_completed_challenge_user" json:"challenge_id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_completed_challenge_user" json:"user_id"`
	CompletedDate time.Time `json:"completed_date"`
	IsValidated   bool      `gorm:"default:false" json:"is_validated"`
	CoinsAwarded  bool      `gorm:"default:false" json:"coins_awarded"`
}
