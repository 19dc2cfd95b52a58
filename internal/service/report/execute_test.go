package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/export"
)

func TestExecute_MissingTenantLeavesNoRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Execute(context.Background(), domain.Identity{UserID: "u1"}, "r1", domain.RuntimeParams{}, ExecuteOptions{})

	var sec *domain.SecurityViolationError
	require.ErrorAs(t, err, &sec)
	assert.Equal(t, int64(0), f.ledgerTotal(t, "t1"))
}

func TestExecute_UnknownReportLeavesNoRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Execute(context.Background(), caller(), "no-such-report", domain.RuntimeParams{}, ExecuteOptions{})

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(0), f.ledgerTotal(t, "t1"))
}

func TestExecute_SuccessAppendsOneRecordAndStats(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Stock by Item", Spec: simpleSpec()})
	require.NoError(t, err)

	res, err := f.svc.Execute(ctx, caller(), def.ID, domain.RuntimeParams{}, ExecuteOptions{})
	require.NoError(t, err)

	assert.Equal(t, def.ID, res.ReportID)
	assert.Equal(t, "Stock by Item", res.ReportName)
	assert.Equal(t, []string{"Item Name", "Quantity"}, res.Columns)
	require.Equal(t, int64(2), res.RowCount)
	assert.InDelta(t, 40.0, res.Rows[0]["Quantity"], 0.001)
	assert.NotEmpty(t, res.Fingerprint)

	records, total, err := f.ledger.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.ExecSuccess, records[0].Status)
	assert.Equal(t, def.ID, records[0].ReportID)
	assert.Equal(t, "u1", records[0].ExecutedBy)
	assert.Equal(t, res.Fingerprint, records[0].Fingerprint)

	reloaded, err := f.svc.Get(ctx, caller(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.ExecutionCount)
	require.NotNil(t, reloaded.LastRunAt)
}

func TestExecute_TimeoutRecordedWithoutStats(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Slow", Spec: simpleSpec()})
	require.NoError(t, err)

	// a deadline too short to ever satisfy forces the timeout branch
	_, err = f.svc.Execute(ctx, caller(), def.ID, domain.RuntimeParams{}, ExecuteOptions{Timeout: time.Nanosecond})
	var timeout *domain.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Positive(t, timeout.DurationMs)

	records, total, err := f.ledger.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.ExecTimeout, records[0].Status)
	require.NotNil(t, records[0].ErrorMessage)

	// even a failed attempt keeps its measured timing
	assert.Positive(t, records[0].DurationMs)
	assert.Equal(t, timeout.DurationMs, records[0].DurationMs)

	reloaded, err := f.svc.Get(ctx, caller(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.ExecutionCount)
	assert.Nil(t, reloaded.LastRunAt)
}

func TestExecute_ConfiguredTimeoutApplies(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Slow", Spec: simpleSpec()})
	require.NoError(t, err)

	// no per-call deadline: the service-wide setting must bound the run
	f.svc.SetQueryTimeout(time.Nanosecond)

	_, err = f.svc.Execute(ctx, caller(), def.ID, domain.RuntimeParams{}, ExecuteOptions{})
	var timeout *domain.TimeoutError
	require.ErrorAs(t, err, &timeout)

	records, _, err := f.ledger.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ExecTimeout, records[0].Status)
}

func TestPreview_RunsUnsavedSpec(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	res, err := f.svc.Preview(ctx, caller(), simpleSpec(), domain.RuntimeParams{}, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.AdhocReportID, res.ReportID)
	assert.Equal(t, int64(2), res.RowCount)

	records, total, err := f.ledger.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.AdhocReportID, records[0].ReportID)
}

func TestPreview_CompileFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Preview(ctx, caller(), domain.ReportSpec{}, domain.RuntimeParams{}, ExecuteOptions{})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	records, total, err := f.ledger.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.ExecError, records[0].Status)
	assert.Empty(t, records[0].Fingerprint)
}

func TestPreview_SurfacesDroppedFilterWarnings(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")

	spec := simpleSpec()
	spec.Filters = []domain.ReportFilter{
		{FieldID: "item_name", Operator: domain.OpContains, Value: ""},
	}

	res, err := f.svc.Preview(context.Background(), caller(), spec, domain.RuntimeParams{}, ExecuteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "item_name", res.Warnings[0].FieldID)
}

func TestExecute_RuntimeParamsScopeRows(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Stock", Spec: simpleSpec()})
	require.NoError(t, err)

	res, err := f.svc.Execute(ctx, caller(), def.ID, domain.RuntimeParams{ItemIDs: []string{"item1"}}, ExecuteOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.RowCount)
	assert.Equal(t, "Espresso Beans", res.Rows[0]["Item Name"])
}

func TestExport_DisabledWithoutExporter(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Export(context.Background(), caller(), "r1", domain.RuntimeParams{}, domain.FormatCSV, ExecuteOptions{})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "export is not enabled")
}

func TestExport_WritesCSV(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	exporter, err := export.NewFileExporter(t.TempDir())
	require.NoError(t, err)
	f.svc.exporter = exporter

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Stock", Spec: simpleSpec()})
	require.NoError(t, err)

	_, err = f.svc.Export(ctx, caller(), def.ID, domain.RuntimeParams{}, domain.ExportFormat("hologram"), ExecuteOptions{})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	res, err := f.svc.Export(ctx, caller(), def.ID, domain.RuntimeParams{}, domain.FormatCSV, ExecuteOptions{})
	require.NoError(t, err)
	assert.FileExists(t, res.FilePath)
	assert.Equal(t, "text/csv", res.MimeType)
}
