package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet name of a new excelize workbook
const defaultSheet = "Sheet1"

// XLSXWriter writes result tables as single-sheet workbooks
type XLSXWriter struct {
	dir   string
	sheet string
}

// NewXLSXWriter creates a workbook writer rooted at dir. An empty sheet
// name keeps the default sheet.
func NewXLSXWriter(dir, sheet string) *XLSXWriter {
	if sheet == "" {
		sheet = defaultSheet
	}
	return &XLSXWriter{dir: dir, sheet: sheet}
}

// WriteXLSX writes the header and records through the excelize stream
// writer. Cells are written as strings so empty cells stay empty.
func (w *XLSXWriter) WriteXLSX(filePath string, headers []string, records [][]string) error {
	fullPath := filePath
	if !filepath.IsAbs(filePath) && w.dir != "" {
		fullPath = filepath.Join(w.dir, filePath)
	}

	slog.Info("writing XLSX file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, w.sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	row := 1
	writeRow := func(values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		row++
		return sw.SetRow(cell, cells)
	}

	if err := writeRow(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, record := range records {
		if err := writeRow(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
