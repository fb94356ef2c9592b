/*
Package importer reads bulk course results from spreadsheets and applies
them to employee records.

PURPOSE:
  Training departments report results as spreadsheets, one row per
  {employee, course, date, score}. This package parses those files
  (excelize) into ResultRows, normalizing dates to day precision BEFORE
  anything reaches the engine, and applies them in a failure-isolated
  batch (apply.go).

HEADER HANDLING:
  The first row is a header; column order is flexible. Recognized
  headers (case-insensitive): employee_id/employee, course/course_name,
  date, score.

DATE FORMATS:
  "2006-01-02" and "02/01/2006" are accepted. Anything else fails the
  row, not the file.

FAILURE MODEL:
  A malformed row is recorded as a RowFailure and skipped; only an
  unreadable file or a missing/bad header fails the whole import.

SEE ALSO:
  - apply.go: Batch application with per-employee isolation
*/
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/compliance-engine/training"
)

var (
	// ErrNoData is returned for a sheet with no rows below the header.
	ErrNoData = errors.New("import file contains no data rows")

	// ErrBadHeader is returned when required columns are missing.
	ErrBadHeader = errors.New("import file header is missing required columns")

	// ErrTooManyRows is returned when the file exceeds the configured cap.
	ErrTooManyRows = errors.New("import file exceeds the row limit")
)

// ResultRow is one parsed course result, ready for the engine.
type ResultRow struct {
	Row        int       `json:"row"` // 1-based spreadsheet row, for reporting
	EmployeeID string    `json:"employee_id"`
	CourseName string    `json:"course_name"`
	Date       time.Time `json:"date"`
	Score      float64   `json:"score"`
}

// RowFailure records one skipped row and why.
type RowFailure struct {
	Row        int    `json:"row"`
	EmployeeID string `json:"employee_id,omitempty"`
	Reason     string `json:"reason"`
}

// ReadResults parses an xlsx stream into result rows. maxRows caps the
// number of data rows (0 disables the cap). Malformed rows come back as
// failures alongside the good rows.
func ReadResults(r io.Reader, maxRows int) ([]ResultRow, []RowFailure, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(cells) < 2 {
		return nil, nil, ErrNoData
	}
	if maxRows > 0 && len(cells)-1 > maxRows {
		return nil, nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(cells)-1, maxRows)
	}

	cols, ok := headerIndex(cells[0])
	if !ok {
		return nil, nil, ErrBadHeader
	}

	var rows []ResultRow
	var failures []RowFailure
	for i := 1; i < len(cells); i++ {
		row, err := parseRow(cells[i], cols, i+1)
		if err != nil {
			failures = append(failures, RowFailure{
				Row:        i + 1,
				EmployeeID: cell(cells[i], cols.employeeID),
				Reason:     err.Error(),
			})
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 && len(failures) == 0 {
		return nil, nil, ErrNoData
	}
	return rows, failures, nil
}

type columns struct {
	employeeID, course, date, score int
}

// headerIndex locates the required columns, tolerating reordered and
// extra columns.
func headerIndex(header []string) (columns, bool) {
	cols := columns{employeeID: -1, course: -1, date: -1, score: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "employee_id", "employee":
			cols.employeeID = i
		case "course", "course_name":
			cols.course = i
		case "date":
			cols.date = i
		case "score":
			cols.score = i
		}
	}
	if cols.employeeID < 0 || cols.course < 0 || cols.date < 0 || cols.score < 0 {
		return cols, false
	}
	return cols, true
}

func parseRow(cells []string, cols columns, rowNum int) (ResultRow, error) {
	row := ResultRow{Row: rowNum}

	row.EmployeeID = strings.TrimSpace(cell(cells, cols.employeeID))
	if row.EmployeeID == "" {
		return row, errors.New("empty employee id")
	}
	row.CourseName = strings.TrimSpace(cell(cells, cols.course))
	if row.CourseName == "" {
		return row, errors.New("empty course name")
	}

	date, err := parseDate(cell(cells, cols.date))
	if err != nil {
		return row, err
	}
	row.Date = date

	score, err := strconv.ParseFloat(strings.TrimSpace(cell(cells, cols.score)), 64)
	if err != nil {
		return row, fmt.Errorf("invalid score %q", cell(cells, cols.score))
	}
	if score < 0 || score > 100 {
		return row, fmt.Errorf("score %v outside [0,100]", score)
	}
	row.Score = score
	return row, nil
}

// parseDate normalizes to a day-precision UTC date. Date normalization
// happens here, never in the engine.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return training.DayOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
