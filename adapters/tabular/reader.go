// Package tabular is the ETL boundary: it reads the raw meter, metadata
// and weather tables (CSV or XLSX) and merges them into the long reading
// frame the pipeline consumes. Row repair beyond the merges below belongs
// upstream, not here.
package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Table is a raw tabular file: trimmed headers plus string cell rows.
type Table struct {
	Headers []string
	Rows    [][]string

	index map[string]int
}

// Col returns the index of a header, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Cell returns the value at (row, header), empty when absent.
func (t *Table) Cell(row int, name string) string {
	c := t.Col(name)
	if c < 0 || c >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][c]
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" {
		fileType = "xlsx"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// Read loads the file into a Table
func (r *DataReader) Read() (*Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		rows, err = r.readCSVRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s needs at least a header row and one data row", r.filePath)
	}

	headers := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
		if _, dup := index[headers[i]]; !dup {
			index[headers[i]] = i
		}
	}
	for i := range rows[1:] {
		for j := range rows[i+1] {
			rows[i+1][j] = strings.TrimSpace(rows[i+1][j])
		}
	}

	log.Printf("[DataReader] %s processed (%d columns, %d rows)",
		filepath.Base(r.filePath), len(headers), len(rows)-1)
	return &Table{Headers: headers, Rows: rows[1:], index: index}, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// timestampLayouts are the accepted datetime formats at the boundary
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a boundary timestamp or fails; malformed
// datetimes are a load error, never silently defaulted.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
