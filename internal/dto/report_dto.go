package dto

import "time"

// ReportArchiveResponse points at an archived progress report.
type ReportArchiveResponse struct {
	StudentID  string    `json:"student_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	ArchivedAt time.Time `json:"archived_at"`
}
