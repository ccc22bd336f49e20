package models

import (
	"time"
)

// Device is a physical unit bound to an account. A Device row is only ever
// created by a successful claim redemption.
type Device struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	OwnerID    string    `gorm:"index;not null" json:"owner_id"`
	Name       string    `gorm:"not null" json:"name"`
	HardwareID string    `gorm:"index;not null" json:"hardware_id"`
	IsLearning bool      `gorm:"default:false" json:"is_learning"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
