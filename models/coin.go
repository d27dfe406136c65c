package models

import (
	"time"
)

// CoinBalance is the current coin count for one (user, group) pair. It is
// created lazily on the first credit and never allowed below zero.
type CoinBalance struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_balance_user_group" json:"user_id"`
	GroupID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_balance_user_group" json:"group_id"`
	Balance   int       `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoinTransaction is one append-only ledger row. Positive amounts are
// credits, negative amounts are debits. The sum of a pair's rows always
// equals that pair's CoinBalance.
type CoinTransaction struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	GroupID     string    `gorm:"type:uuid;not null;index" json:"group_id"`
	Amount      int       `gorm:"not null" json:"amount"`
	Description string    `gorm:"type:text" json:"description"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
}
