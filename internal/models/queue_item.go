package models

import (
	"time"
)

// QueueStatus is the lifecycle state of a transmit queue item.
// pending -> processing -> completed | failed, one-way.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is one requested IR transmission for a device. The hardware
// polls for the oldest pending item, transmits, and reports the outcome.
type QueueItem struct {
	ID          string      `gorm:"primaryKey" json:"id"`
	DeviceID    string      `gorm:"index:idx_queue_device_status;not null" json:"device_id"`
	CommandID   string      `gorm:"not null" json:"command_id"`
	Status      QueueStatus `gorm:"index:idx_queue_device_status;not null;default:pending" json:"status"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
}
