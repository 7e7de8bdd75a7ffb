package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// State is a step of the upload flow.
type State string

const (
	StateAwaitingFiles    State = "awaiting_files"
	StateAllFilesLoaded   State = "all_files_loaded"
	StatePreviewGenerated State = "preview_generated"
	StateConfirmed        State = "confirmed"
)

// ErrInvalidTransition indicates the requested step is not allowed from the current state.
var ErrInvalidTransition = errors.New("invalid upload state transition")

// LoadResult describes a successfully parsed sheet.
type LoadResult struct {
	Kind            Kind     `json:"kind"`
	FileName        string   `json:"file_name"`
	Records         int      `json:"records"`
	Columns         []string `json:"columns"`
	ExpectedColumns []string `json:"expected_columns"`
	MissingColumns  []string `json:"missing_columns,omitempty"`
}

// Preview is the merged set awaiting confirmation.
type Preview struct {
	Students   []models.Student `json:"students"`
	Incomplete int              `json:"incomplete_records"`
	Duplicates int              `json:"duplicate_records"`
}

// Confirmation is the set handed to the rest of the system.
type Confirmation struct {
	Students   []models.Student `json:"students"`
	Excluded   int              `json:"excluded_records"`
	Duplicates int              `json:"duplicate_records"`
}

// Session tracks one upload flow:
// AwaitingFiles -> AllFilesLoaded -> PreviewGenerated -> Confirmed.
// It is not safe for concurrent use.
type Session struct {
	state   State
	sources map[Kind]*Table
	preview    []models.Student
	duplicates int
}

// NewSession starts an upload flow awaiting its three sheets.
func NewSession() *Session {
	return &Session{
		state:   StateAwaitingFiles,
		sources: make(map[Kind]*Table, len(Kinds)),
	}
}

// State reports the current step.
func (s *Session) State() State {
	return s.state
}

// Loaded lists the sheets parsed so far.
func (s *Session) Loaded() []Kind {
	loaded := make([]Kind, 0, len(Kinds))
	for _, k := range Kinds {
		if s.sources[k] != nil {
			loaded = append(loaded, k)
		}
	}
	return loaded
}

// Load parses and stores one sheet. A parse failure leaves previously loaded
// sheets untouched. Reloading after a preview discards the preview.
func (s *Session) Load(kind Kind, fileName string, r io.Reader) (LoadResult, error) {
	if s.state == StateConfirmed {
		return LoadResult{}, fmt.Errorf("load %s: %w", kind, ErrInvalidTransition)
	}
	if _, ok := requiredHeaders[kind]; !ok {
		return LoadResult{}, fmt.Errorf("unknown source %q", kind)
	}

	table, err := ParseCSV(fileName, r)
	if err != nil {
		return LoadResult{}, err
	}

	s.sources[kind] = &table
	s.preview = nil
	s.duplicates = 0
	if s.allLoaded() {
		s.state = StateAllFilesLoaded
	} else {
		s.state = StateAwaitingFiles
	}

	return LoadResult{
		Kind:            kind,
		FileName:        fileName,
		Records:         len(table.Rows),
		Columns:         table.Headers,
		ExpectedColumns: RequiredHeaders(kind),
		MissingColumns:  MissingHeaders(kind, table),
	}, nil
}

// Preview merges the loaded sheets. It fails with ErrMissingInput until all
// three are loaded. Attendance rows repeating an earlier Student_ID are
// dropped and counted.
func (s *Session) Preview() (Preview, error) {
	switch s.state {
	case StateAwaitingFiles:
		return Preview{}, ErrMissingInput
	case StateConfirmed:
		return Preview{}, fmt.Errorf("preview: %w", ErrInvalidTransition)
	}

	merged, err := Merge(s.sources[KindAttendance], s.sources[KindMarks], s.sources[KindFees])
	if err != nil {
		return Preview{}, err
	}

	unique, duplicates := DropDuplicateIDs(merged)

	s.preview = unique
	s.duplicates = duplicates
	s.state = StatePreviewGenerated
	return Preview{Students: unique, Incomplete: CountIncomplete(unique), Duplicates: duplicates}, nil
}

// Confirm hands over the previewed set. When excludeIncomplete is set, records
// lacking identity fields are dropped and counted.
func (s *Session) Confirm(excludeIncomplete bool) (Confirmation, error) {
	return s.ConfirmWith(excludeIncomplete, nil)
}

// ConfirmWith is Confirm with a commit step. The session only becomes
// Confirmed when commit succeeds; on failure it stays in PreviewGenerated so
// the caller may retry.
func (s *Session) ConfirmWith(excludeIncomplete bool, commit func(Confirmation) error) (Confirmation, error) {
	if s.state != StatePreviewGenerated {
		return Confirmation{}, fmt.Errorf("confirm from %s: %w", s.state, ErrInvalidTransition)
	}

	students := s.preview
	excluded := 0
	if excludeIncomplete {
		students = FilterComplete(s.preview)
		excluded = len(s.preview) - len(students)
	}

	result := Confirmation{Students: students, Excluded: excluded, Duplicates: s.duplicates}
	if commit != nil {
		if err := commit(result); err != nil {
			return Confirmation{}, err
		}
	}

	s.state = StateConfirmed
	return result, nil
}

func (s *Session) allLoaded() bool {
	for _, k := range Kinds {
		if s.sources[k] == nil {
			return false
		}
	}
	return true
}
