package dto

import (
	"time"

	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

// NotificationQuery filters the derived notification list. Non-zero limits
// replace the configured alert thresholds for this request only.
type NotificationQuery struct {
	Status     string  `query:"status" validate:"omitempty,oneof=pending sent read"`
	Type       string  `query:"type" validate:"omitempty,oneof=attendance performance fees trend"`
	Attendance float64 `query:"attendance" validate:"omitempty,gt=0,lte=100"`
	Marks      float64 `query:"marks" validate:"omitempty,gt=0,lte=100"`
	FeeDays    int     `query:"fee_days" validate:"omitempty,gt=0,lte=365"`
}

// Thresholds returns the per-request limits of the query.
func (q NotificationQuery) Thresholds() risk.AlertThresholds {
	return risk.AlertThresholds{Attendance: q.Attendance, Marks: q.Marks, FeeDays: q.FeeDays}
}

// NotificationResponse is a derived alert with its delivery status overlay.
type NotificationResponse struct {
	risk.Alert
	Status string `json:"status"`
}

// NotificationSendRequest triggers a simulated send to a student and their parents.
type NotificationSendRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	AlertID   string `json:"alert_id" validate:"omitempty,max=96"`
	Channel   string `json:"channel" validate:"omitempty,oneof=email sms app"`
	Message   string `json:"message" validate:"omitempty,max=2000"`
}

// NotificationSendResponse acknowledges a simulated send.
type NotificationSendResponse struct {
	NotificationID string    `json:"notification_id"`
	StudentID      string    `json:"student_id"`
	Channel        string    `json:"channel"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sent_at"`
}

// NotificationEvent is pushed to websocket subscribers.
type NotificationEvent struct {
	Event     string    `json:"event"`
	AlertID   string    `json:"alert_id"`
	StudentID string    `json:"student_id"`
	Mentor    string    `json:"mentor,omitempty"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
