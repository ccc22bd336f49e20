package models

import (
	"time"
)

// IRCommand is a captured infrared signal belonging to a device.
// Protocol/address/command are stored exactly as decoded by the hardware
// (e.g. protocol "NEC", address "0x04", command "0x08").
type IRCommand struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	DeviceID   string    `gorm:"index;not null" json:"device_id"`
	Name       string    `gorm:"not null" json:"name"`
	Protocol   string    `gorm:"not null" json:"protocol"`
	Address    string    `json:"address"`
	Command    string    `json:"command"`
	CapturedAt time.Time `json:"captured_at"`
}
