// Package ingest parses the three uploaded student sheets and joins them into
// student records.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

var (
	// ErrEmptyFile indicates the uploaded sheet had no content.
	ErrEmptyFile = errors.New("file is empty")
	// ErrNoDataRows indicates the sheet only carried a header line.
	ErrNoDataRows = errors.New("no valid data rows found")
	// ErrMissingKeyColumn indicates the sheet cannot be joined because it lacks Student_ID.
	ErrMissingKeyColumn = errors.New("missing Student_ID column")
)

// ParseError names the file whose content could not be loaded.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Table is one parsed sheet.
type Table struct {
	Name    string
	Headers []string
	Rows    []map[string]string
}

// ParseCSV reads a comma separated sheet. The first non-blank line is the
// header row. Fields are split on commas without quoting rules; surrounding
// double quotes and whitespace are stripped. Rows whose fields are all blank
// are dropped.
func ParseCSV(name string, r io.Reader) (Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return Table{}, &ParseError{File: name, Err: err}
	}

	if len(lines) == 0 {
		return Table{}, &ParseError{File: name, Err: ErrEmptyFile}
	}

	headers := splitFields(strings.TrimPrefix(lines[0], "\ufeff"))
	if !contains(headers, risk.ColStudentID) {
		return Table{}, &ParseError{File: name, Err: ErrMissingKeyColumn}
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitFields(line)
		row := make(map[string]string, len(headers))
		blank := true
		for i, header := range headers {
			value := ""
			if i < len(values) {
				value = values[i]
			}
			if value != "" {
				blank = false
			}
			row[header] = value
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return Table{}, &ParseError{File: name, Err: ErrNoDataRows}
	}

	return Table{Name: name, Headers: headers, Rows: rows}, nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(strings.TrimSpace(part), `"`, "")
	}
	return parts
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
