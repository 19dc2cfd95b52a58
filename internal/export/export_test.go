package export

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

var (
	testColumns = []string{"Item Name", "Quantity"}
	testRows    = []map[string]any{
		{"Item Name": "Espresso Beans", "Quantity": 52.0},
		{"Item Name": "Oat Milk", "Quantity": 80.0},
	}
)

func TestExportCSV(t *testing.T) {
	e, err := NewFileExporter(t.TempDir())
	require.NoError(t, err)

	res, err := e.Export(context.Background(), testColumns, testRows, "Stock by Item", domain.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", res.MimeType)
	assert.Contains(t, res.Filename, "Stock_by_Item")

	f, err := os.Open(res.FilePath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, testColumns, records[0])
	assert.Equal(t, []string{"Espresso Beans", "52"}, records[1])
}

func TestExportExcel(t *testing.T) {
	e, err := NewFileExporter(t.TempDir())
	require.NoError(t, err)

	res, err := e.Export(context.Background(), testColumns, testRows, "Stock", domain.FormatExcel)
	require.NoError(t, err)
	assert.FileExists(t, res.FilePath)

	f, err := excelize.OpenFile(res.FilePath)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Item Name", header)

	cell, err := f.GetCellValue("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "52", cell)
}

func TestExportPDFRejected(t *testing.T) {
	e, err := NewFileExporter(t.TempDir())
	require.NoError(t, err)

	_, err = e.Export(context.Background(), testColumns, testRows, "Stock", domain.FormatPDF)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestExportFilenameSanitized(t *testing.T) {
	assert.NotContains(t, exportFilename("../../etc/passwd", "csv"), "/")
	assert.Contains(t, exportFilename("", "csv"), "report_")
}
