package dto

import (
	"time"

	"github.com/noah-isme/dropout-watch-api/internal/ingest"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

// UploadSessionResponse reports where an upload flow stands.
type UploadSessionResponse struct {
	ID        string        `json:"id"`
	State     ingest.State  `json:"state"`
	Loaded    []ingest.Kind `json:"loaded_sources"`
	Missing   []ingest.Kind `json:"missing_sources"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// SourceLoadResponse describes one accepted sheet.
type SourceLoadResponse struct {
	Session UploadSessionResponse `json:"session"`
	Source  ingest.LoadResult     `json:"source"`
}

// PreviewResponse shows the merged set before it replaces the stored records.
type PreviewResponse struct {
	Session           UploadSessionResponse `json:"session"`
	TotalRecords      int                   `json:"total_records"`
	IncompleteRecords int                   `json:"incomplete_records"`
	DuplicateRecords  int                   `json:"duplicate_records"`
	Stats             risk.Stats            `json:"stats"`
	Students          []StudentResponse     `json:"students"`
}

// ConfirmUploadRequest controls how incomplete records are treated.
type ConfirmUploadRequest struct {
	ExcludeIncomplete bool `json:"exclude_incomplete"`
}

// ConfirmUploadResponse reports what was stored.
type ConfirmUploadResponse struct {
	Session    UploadSessionResponse `json:"session"`
	Imported   int                   `json:"imported_records"`
	Excluded   int                   `json:"excluded_records"`
	Duplicates int                   `json:"duplicate_records"`
	Stats      risk.Stats            `json:"stats"`
}
