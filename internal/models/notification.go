package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification delivery statuses. Alerts with no delivery row are pending.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusRead    = "read"
)

// NotificationDelivery logs a simulated send or read of a derived alert.
// The alert itself is recomputed from student metrics and never stored.
type NotificationDelivery struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	AlertID   string            `gorm:"size:96;index;not null" json:"alert_id"`
	StudentID string            `gorm:"size:64;index;not null" json:"student_id"`
	Type      string            `gorm:"size:32" json:"type"`
	Channel   string            `gorm:"size:32" json:"channel"`
	Message   string            `gorm:"type:text" json:"message"`
	Status    string            `gorm:"size:16;not null" json:"status"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
