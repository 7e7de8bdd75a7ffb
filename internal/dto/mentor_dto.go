package dto

import (
	"time"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

const dateLayout = "2006-01-02"

// MentoringQuery filters intervention and meeting listings.
type MentoringQuery struct {
	StudentID string `query:"student_id" validate:"omitempty,max=64"`
	Status    string `query:"status" validate:"omitempty,oneof=planned scheduled active completed cancelled"`
}

// InterventionCreateRequest logs a new intervention for a student.
type InterventionCreateRequest struct {
	StudentID    string `json:"student_id" validate:"required,max=64"`
	MentorID     string `json:"mentor_id" validate:"omitempty,max=64"`
	Type         string `json:"type" validate:"required,oneof=academic attendance counseling financial"`
	Priority     string `json:"priority" validate:"required,oneof=low medium high"`
	Notes        string `json:"notes" validate:"omitempty,max=2000"`
	FollowUpDate string `json:"follow_up_date" validate:"omitempty,datetime=2006-01-02"`
	Status       string `json:"status" validate:"omitempty,oneof=planned scheduled active"`
}

// InterventionResponse represents an intervention returned to clients.
type InterventionResponse struct {
	ID           uint      `json:"id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	MentorID     string    `json:"mentor_id"`
	Type         string    `json:"type"`
	Priority     string    `json:"priority"`
	Notes        string    `json:"notes"`
	Status       string    `json:"status"`
	FollowUpDate string    `json:"follow_up_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewInterventionResponse converts an intervention model to DTO.
func NewInterventionResponse(m models.Intervention) InterventionResponse {
	return InterventionResponse{
		ID:           m.ID,
		StudentID:    m.StudentID,
		StudentName:  m.StudentName,
		MentorID:     m.MentorID,
		Type:         m.Type,
		Priority:     m.Priority,
		Notes:        m.Notes,
		Status:       m.Status,
		FollowUpDate: formatDate(time.Time(m.FollowUpDate)),
		CreatedAt:    m.CreatedAt,
	}
}

// NewInterventionResponseSlice converts models into DTOs.
func NewInterventionResponseSlice(items []models.Intervention) []InterventionResponse {
	out := make([]InterventionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewInterventionResponse(item))
	}
	return out
}

// MeetingCreateRequest schedules a meeting.
type MeetingCreateRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	MentorID  string `json:"mentor_id" validate:"omitempty,max=64"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	Type      string `json:"type" validate:"required,oneof=individual parent_meeting group"`
	Agenda    string `json:"agenda" validate:"omitempty,max=2000"`
}

// MeetingStatusRequest moves a meeting to a new status.
type MeetingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled completed cancelled"`
}

// MeetingResponse represents a meeting returned to clients.
type MeetingResponse struct {
	ID          uint      `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	MentorID    string    `json:"mentor_id"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Type        string    `json:"type"`
	Agenda      string    `json:"agenda"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMeetingResponse converts a meeting model to DTO.
func NewMeetingResponse(m models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:          m.ID,
		StudentID:   m.StudentID,
		StudentName: m.StudentName,
		MentorID:    m.MentorID,
		Date:        formatDate(time.Time(m.Date)),
		Time:        m.Time,
		Type:        m.Type,
		Agenda:      m.Agenda,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}

// NewMeetingResponseSlice converts models into DTOs.
func NewMeetingResponseSlice(items []models.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewMeetingResponse(item))
	}
	return out
}

// MentorSummaryResponse is the mentor dashboard headline.
type MentorSummaryResponse struct {
	MentorID               string `json:"mentor_id,omitempty"`
	AssignedStudents       int    `json:"assigned_students"`
	HighRiskStudents       int    `json:"high_risk_students"`
	ActiveInterventions    int    `json:"active_interventions"`
	CompletedInterventions int    `json:"completed_interventions"`
	UpcomingMeetings       int    `json:"upcoming_meetings"`
}

// ParseDate reads a YYYY-MM-DD value; blank input yields the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
