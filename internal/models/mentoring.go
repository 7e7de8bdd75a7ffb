package models

import (
	"time"

	"gorm.io/datatypes"
)

// Intervention types.
const (
	InterventionTypeAcademic   = "academic"
	InterventionTypeAttendance = "attendance"
	InterventionTypeCounseling = "counseling"
	InterventionTypeFinancial  = "financial"
)

// Intervention statuses.
const (
	InterventionStatusPlanned   = "planned"
	InterventionStatusScheduled = "scheduled"
	InterventionStatusActive    = "active"
	InterventionStatusCompleted = "completed"
)

// Intervention priorities.
const (
	InterventionPriorityLow    = "low"
	InterventionPriorityMedium = "medium"
	InterventionPriorityHigh   = "high"
)

// Meeting types.
const (
	MeetingTypeIndividual = "individual"
	MeetingTypeParent     = "parent_meeting"
	MeetingTypeGroup      = "group"
)

// Meeting statuses.
const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusCompleted = "completed"
	MeetingStatusCancelled = "cancelled"
)

// Intervention is a planned or completed mentor action for a single student.
type Intervention struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	StudentID    string         `gorm:"size:64;index;not null" json:"student_id"`
	StudentName  string         `gorm:"size:255" json:"student_name"`
	MentorID     string         `gorm:"size:64;index" json:"mentor_id"`
	Type         string         `gorm:"size:32;not null" json:"type"`
	Priority     string         `gorm:"size:16;not null" json:"priority"`
	Notes        string         `gorm:"type:text" json:"notes"`
	Status       string         `gorm:"size:16;not null" json:"status"`
	FollowUpDate datatypes.Date `json:"follow_up_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Meeting is a scheduled counseling or parent session.
type Meeting struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	StudentID   string         `gorm:"size:64;index;not null" json:"student_id"`
	StudentName string         `gorm:"size:255" json:"student_name"`
	MentorID    string         `gorm:"size:64;index" json:"mentor_id"`
	Date        datatypes.Date `json:"date"`
	Time        string         `gorm:"size:5" json:"time"`
	Type        string         `gorm:"size:32;not null" json:"type"`
	Agenda      string         `gorm:"type:text" json:"agenda"`
	Status      string         `gorm:"size:16;not null" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
