package importer_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/compliance-engine/importer"
)

// sheet builds an in-memory xlsx with the given rows on the first sheet.
func sheet(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadResults_ParsesWellFormedFile(t *testing.T) {
	buf := sheet(t,
		[]interface{}{"employee_id", "course", "date", "score"},
		[]interface{}{"emp-1", "Seguridad Industrial", "2026-03-05", "85"},
		[]interface{}{"emp-2", "Primeros Auxilios", "05/03/2026", "60.5"},
	)

	rows, failures, err := importer.ReadResults(buf, 0)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, rows, 2)

	assert.Equal(t, "emp-1", rows[0].EmployeeID)
	assert.Equal(t, "Seguridad Industrial", rows[0].CourseName)
	assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 85.0, rows[0].Score)

	// 05/03/2026 is day/month/year, same date as row one.
	assert.Equal(t, rows[0].Date, rows[1].Date)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, 3, rows[1].Row)
}

func TestReadResults_TolerantHeader(t *testing.T) {
	// Reordered columns, alternate names, different casing, extra column.
	buf := sheet(t,
		[]interface{}{"Score", "Employee", "comments", "Course_Name", "DATE"},
		[]interface{}{"90", "emp-1", "ignored", "Seguridad Industrial", "2026-03-05"},
	)

	rows, failures, err := importer.ReadResults(buf, 0)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, rows, 1)
	assert.Equal(t, "emp-1", rows[0].EmployeeID)
	assert.Equal(t, 90.0, rows[0].Score)
}

func TestReadResults_BadRowsBecomeFailures(t *testing.T) {
	buf := sheet(t,
		[]interface{}{"employee_id", "course", "date", "score"},
		[]interface{}{"", "Seguridad Industrial", "2026-03-05", "85"},
		[]interface{}{"emp-1", "", "2026-03-05", "85"},
		[]interface{}{"emp-2", "Seguridad Industrial", "March 5th", "85"},
		[]interface{}{"emp-3", "Seguridad Industrial", "2026-03-05", "weak"},
		[]interface{}{"emp-4", "Seguridad Industrial", "2026-03-05", "120"},
		[]interface{}{"emp-5", "Seguridad Industrial", "2026-03-05", "70"},
	)

	rows, failures, err := importer.ReadResults(buf, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "emp-5", rows[0].EmployeeID)

	require.Len(t, failures, 5)
	assert.Equal(t, 2, failures[0].Row)
	assert.Equal(t, "emp-2", failures[2].EmployeeID)
	assert.Contains(t, failures[3].Reason, "invalid score")
	assert.Contains(t, failures[4].Reason, "outside [0,100]")
}

func TestReadResults_HeaderOnlyIsNoData(t *testing.T) {
	buf := sheet(t, []interface{}{"employee_id", "course", "date", "score"})

	_, _, err := importer.ReadResults(buf, 0)
	assert.ErrorIs(t, err, importer.ErrNoData)
}

func TestReadResults_MissingColumnIsBadHeader(t *testing.T) {
	buf := sheet(t,
		[]interface{}{"employee_id", "course", "score"},
		[]interface{}{"emp-1", "Seguridad Industrial", "85"},
	)

	_, _, err := importer.ReadResults(buf, 0)
	assert.ErrorIs(t, err, importer.ErrBadHeader)
}

func TestReadResults_RowLimit(t *testing.T) {
	buf := sheet(t,
		[]interface{}{"employee_id", "course", "date", "score"},
		[]interface{}{"emp-1", "A", "2026-03-05", "85"},
		[]interface{}{"emp-2", "A", "2026-03-05", "85"},
	)

	_, _, err := importer.ReadResults(buf, 1)
	assert.ErrorIs(t, err, importer.ErrTooManyRows)
}

func TestReadResults_NotASpreadsheet(t *testing.T) {
	_, _, err := importer.ReadResults(bytes.NewBufferString("not an xlsx"), 0)
	assert.Error(t, err)
}
