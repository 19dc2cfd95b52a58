// Package export renders materialized report rows into downloadable files.
// The report core hands it rows and performs no formatting itself.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// FileExporter writes CSV and Excel files into a working directory.
type FileExporter struct {
	outDir string
}

// NewFileExporter creates a FileExporter writing into outDir (created if
// absent).
func NewFileExporter(outDir string) (*FileExporter, error) {
	if outDir == "" {
		outDir = os.TempDir()
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileExporter{outDir: outDir}, nil
}

var _ domain.Exporter = (*FileExporter)(nil)

// Export renders rows into the requested format. PDF is not supported by the
// current renderer set.
func (e *FileExporter) Export(ctx context.Context, columns []string, rows []map[string]any, reportName string, format domain.ExportFormat) (*domain.ExportResult, error) {
	switch format {
	case domain.FormatCSV:
		return e.exportCSV(columns, rows, reportName)
	case domain.FormatExcel:
		return e.exportExcel(ctx, columns, rows, reportName)
	case domain.FormatPDF:
		return nil, domain.ErrValidation("pdf export is not supported; use csv or excel")
	}
	return nil, domain.ErrValidation("unknown export format %q", format)
}

func (e *FileExporter) exportCSV(columns []string, rows []map[string]any, reportName string) (*domain.ExportResult, error) {
	filename := exportFilename(reportName, "csv")
	path := filepath.Join(e.outDir, filename)

	f, err := os.Create(path) //nolint:gosec // path is built from a sanitized name
	if err != nil {
		return nil, fmt.Errorf("create csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &domain.ExportResult{
		FilePath: path,
		MimeType: "text/csv",
		Filename: filename,
	}, nil
}

func (e *FileExporter) exportExcel(ctx context.Context, columns []string, rows []map[string]any, reportName string) (*domain.ExportResult, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	const sheet = "Report"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch v := row[col].(type) {
			case time.Time:
				_ = f.SetCellValue(sheet, cell, v.Format("2006-01-02 15:04:05"))
			case nil:
				// leave blank
			default:
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, 18)
	}

	filename := exportFilename(reportName, "xlsx")
	path := filepath.Join(e.outDir, filename)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save xlsx: %w", err)
	}

	return &domain.ExportResult{
		FilePath: path,
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename: filename,
	}, nil
}

func exportFilename(reportName, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, reportName)
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102_150405"), ext)
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
