// Package uscs reads U.S. Cancer Statistics public-use extracts: the
// pipe-delimited ASCII files (BYAGE.TXT, BRAINBYSITE.TXT) as well as CSV
// and XLSX exports of the same tables.
package uscs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oncofit/domain/core"
	"oncofit/internal"

	"github.com/xuri/excelize/v2"
)

// Reader loads USCS tables
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a reader; a nil logger uses the default one
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger}
}

// Open reads a table, choosing the format from the file extension:
// .xlsx (first sheet), .csv (comma), and .txt, .dat or no extension as
// pipe-delimited. Other extensions are rejected.
func (r *Reader) Open(path string) (*Table, error) {
	start := time.Now()
	var (
		table *Table
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		table, err = r.readExcel(path)
	case ".csv":
		table, err = r.readDelimitedFile(path, ',')
	case ".txt", ".dat", "":
		table, err = r.readDelimitedFile(path, '|')
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	table.Source = path
	r.logger.Debug("[uscs] read %s in %.2fms (%d columns, %d rows)",
		path, float64(time.Since(start).Nanoseconds())/1e6, len(table.Headers), len(table.Rows))
	return table, nil
}

// Read parses delimited text from src
func (r *Reader) Read(src io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(src)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited data: %w", err)
	}
	return processRows(rows)
}

func (r *Reader) readDelimitedFile(path string, comma rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return r.Read(file, comma)
}

func (r *Reader) readExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", core.ErrInsufficientData, path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return processRows(rows)
}

// processRows converts raw string rows into a Table. The first row is the
// header; short rows leave trailing columns missing.
func processRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", core.ErrInsufficientData)
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	data := make([]Row, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		row := make(Row, len(headers))
		for j, cell := range raw {
			if j >= len(headers) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == MissingMarker {
				cell = ""
			}
			row[headers[j]] = cell
		}
		data = append(data, row)
	}

	return &Table{Headers: headers, Rows: data}, nil
}

func isBlank(raw []string) bool {
	for _, cell := range raw {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
