package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadAll(t *testing.T, s *Session) {
	t.Helper()
	_, err := s.Load(KindAttendance, "attendance.csv", strings.NewReader(attendanceCSV))
	require.NoError(t, err)
	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.NoError(t, err)
	_, err = s.Load(KindFees, "fees.csv", strings.NewReader(feesCSV))
	require.NoError(t, err)
}

func TestSessionHappyPath(t *testing.T) {
	s := NewSession()
	require.Equal(t, StateAwaitingFiles, s.State())

	res, err := s.Load(KindAttendance, "attendance.csv", strings.NewReader(attendanceCSV))
	require.NoError(t, err)
	require.Equal(t, 3, res.Records)
	require.Empty(t, res.MissingColumns)
	require.Equal(t, StateAwaitingFiles, s.State())

	_, err = s.Preview()
	require.ErrorIs(t, err, ErrMissingInput)

	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.NoError(t, err)
	_, err = s.Load(KindFees, "fees.csv", strings.NewReader(feesCSV))
	require.NoError(t, err)
	require.Equal(t, StateAllFilesLoaded, s.State())
	require.Equal(t, Kinds, s.Loaded())

	preview, err := s.Preview()
	require.NoError(t, err)
	require.Len(t, preview.Students, 3)
	require.Zero(t, preview.Incomplete)
	require.Equal(t, StatePreviewGenerated, s.State())

	confirmed, err := s.Confirm(false)
	require.NoError(t, err)
	require.Len(t, confirmed.Students, 3)
	require.Equal(t, StateConfirmed, s.State())
}

func TestSessionConfirmBeforePreviewFails(t *testing.T) {
	s := NewSession()
	loadAll(t, s)

	_, err := s.Confirm(false)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StateAllFilesLoaded, s.State())
}

func TestSessionReloadAfterPreviewReturnsToLoaded(t *testing.T) {
	s := NewSession()
	loadAll(t, s)
	_, err := s.Preview()
	require.NoError(t, err)

	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.NoError(t, err)
	require.Equal(t, StateAllFilesLoaded, s.State())

	_, err = s.Confirm(false)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionFailedLoadKeepsOtherSources(t *testing.T) {
	s := NewSession()
	loadAll(t, s)

	_, err := s.Load(KindFees, "broken.csv", strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptyFile)
	require.Contains(t, err.Error(), "broken.csv")
	require.Equal(t, StateAllFilesLoaded, s.State())

	preview, err := s.Preview()
	require.NoError(t, err)
	require.Equal(t, 96, preview.Students[1].FeeDueDays)
}

func TestSessionReportsMissingColumns(t *testing.T) {
	s := NewSession()
	res, err := s.Load(KindMarks, "marks.csv", strings.NewReader("Student_ID,Avg_Test_Score\nS1,50\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"Last_Test_Score", "Subjects_Failed", "Attempts_Exhausted"}, res.MissingColumns)
	require.Equal(t, RequiredHeaders(KindMarks), res.ExpectedColumns)
}

func TestSessionConfirmExcludesIncomplete(t *testing.T) {
	s := NewSession()
	attendance := "Student_ID,Name,Department,Attendance_Percentage\nS1,Alpha,CE,80\nS2,,CE,80\n"
	_, err := s.Load(KindAttendance, "attendance.csv", strings.NewReader(attendance))
	require.NoError(t, err)
	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.NoError(t, err)
	_, err = s.Load(KindFees, "fees.csv", strings.NewReader(feesCSV))
	require.NoError(t, err)

	preview, err := s.Preview()
	require.NoError(t, err)
	require.Equal(t, 1, preview.Incomplete)

	confirmed, err := s.Confirm(true)
	require.NoError(t, err)
	require.Len(t, confirmed.Students, 1)
	require.Equal(t, 1, confirmed.Excluded)
}

func TestSessionConfirmedIsTerminal(t *testing.T) {
	s := NewSession()
	loadAll(t, s)
	_, err := s.Preview()
	require.NoError(t, err)
	_, err = s.Confirm(false)
	require.NoError(t, err)

	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Preview()
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Confirm(false)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionConfirmWithFailedCommitStaysInPreview(t *testing.T) {
	s := NewSession()
	loadAll(t, s)
	_, err := s.Preview()
	require.NoError(t, err)

	_, err = s.ConfirmWith(false, func(Confirmation) error { return errors.New("store unavailable") })
	require.EqualError(t, err, "store unavailable")
	require.Equal(t, StatePreviewGenerated, s.State())

	var stored int
	confirmed, err := s.ConfirmWith(false, func(c Confirmation) error {
		stored = len(c.Students)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, stored)
	require.Len(t, confirmed.Students, 3)
	require.Equal(t, StateConfirmed, s.State())
}

func TestSessionPreviewDropsRepeatedStudentIDs(t *testing.T) {
	s := NewSession()
	attendance := "Student_ID,Name,Department,Attendance_Percentage\n" +
		"S00001,Ann,CE,80\n" +
		"S00001,Ann Again,CE,10\n" +
		",Bob,CE,70\n" +
		",Cara,IT,70\n"
	_, err := s.Load(KindAttendance, "attendance.csv", strings.NewReader(attendance))
	require.NoError(t, err)
	_, err = s.Load(KindMarks, "marks.csv", strings.NewReader(marksCSV))
	require.NoError(t, err)
	_, err = s.Load(KindFees, "fees.csv", strings.NewReader(feesCSV))
	require.NoError(t, err)

	preview, err := s.Preview()
	require.NoError(t, err)
	require.Len(t, preview.Students, 2)
	require.Equal(t, 2, preview.Duplicates)
	require.Equal(t, 1, preview.Incomplete)
	require.Equal(t, "Ann", preview.Students[0].Name)
	require.Equal(t, 80.0, preview.Students[0].AttendancePercentage)

	confirmed, err := s.Confirm(false)
	require.NoError(t, err)
	require.Len(t, confirmed.Students, 2)
	require.Equal(t, 2, confirmed.Duplicates)
}
