// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// StartingPoints is the community points balance granted to every new profile.
const StartingPoints = 100

// User represents a member of the exchange. The points balance is a
// non-negative community currency; deductions that would push it below zero
// must fail without mutating state.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"unique;not null" json:"username"`
	Email          string         `gorm:"unique;not null" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Bio            string         `json:"bio"`
	Avatar         string         `json:"avatar"`
	IsAdmin        bool           `gorm:"default:false" json:"is_admin"`
	ItemCount      int            `gorm:"not null;default:0" json:"item_count"`
	CompletedSwaps int            `gorm:"not null;default:0" json:"completed_swaps"`
	Points         int            `gorm:"not null;default:100" json:"points"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserStats aggregates a user's exchange activity for the dashboard.
type UserStats struct {
	ItemCount      int `json:"item_count"`
	CompletedSwaps int `json:"completed_swaps"`
	PendingSwaps   int `json:"pending_swaps"`
	TotalSwaps     int `json:"total_swaps"`
	Points         int `json:"points"`
}
