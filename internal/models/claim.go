package models

import (
	"time"
)

// ClaimStatus is the lifecycle state of a device claim. Transitions are
// one-way: pending -> consumed or pending -> expired, terminal afterwards.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusConsumed ClaimStatus = "consumed"
	ClaimStatusExpired  ClaimStatus = "expired"
)

// Claim is a one-time invitation to bind a physical device to an account.
// The code is handed to the hardware during WiFi provisioning and redeemed
// exactly once.
type Claim struct {
	ID         string      `gorm:"primaryKey" json:"id"`
	Code       string      `gorm:"index:idx_claims_code_status;not null" json:"code"`
	OwnerID    string      `gorm:"index;not null" json:"owner_id"`
	Status     ClaimStatus `gorm:"index:idx_claims_code_status;not null;default:pending" json:"status"`
	ExpiresAt  time.Time   `json:"expires_at"`
	ConsumedAt *time.Time  `json:"consumed_at,omitempty"`
	HardwareID *string     `json:"hardware_id,omitempty"`
	DeviceID   *string     `json:"device_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (c *Claim) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
