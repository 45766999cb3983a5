package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header plus string cells, one slice per data row
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Format identifies an on-disk table encoding
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// DetectFormat infers the table format from the file name. Compression
// suffixes written by pandas (".parq.gzip", ".parquet.snappy") are
// recognised; the codec itself lives inside the parquet file.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".gzip", ".gz", ".snappy"} {
		if strings.HasSuffix(name, ".parq"+suffix) || strings.HasSuffix(name, ".parquet"+suffix) {
			return FormatParquet, nil
		}
	}

	switch filepath.Ext(name) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".parquet", ".parq", ".pq":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported table format: %s", path)
	}
}

// ReadTable reads a table file in any supported format
func ReadTable(path string) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch format {
	case FormatCSV:
		t, err = readCSVFile(path)
	case FormatXLSX:
		t, err = ReadXLSX(path, "")
	case FormatParquet:
		t, err = ReadParquet(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s table %s: %w", format, path, err)
	}
	t.Name = tableName(path)
	return t, nil
}

func readCSVFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV reads a CSV table whose first record is the header
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX reads a worksheet whose first row is the header. An empty sheet
// name selects the first sheet.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		// strip a UTF-8 BOM left by spreadsheet exports
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return &Table{Header: header, Rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func tableName(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
