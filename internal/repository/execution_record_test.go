package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahaan-Amr/servaan-sub004/internal/db"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

func newRecord(tenantID, reportID string, status domain.ExecutionStatus, executedAt time.Time) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ReportID:    reportID,
		TenantID:    tenantID,
		ExecutedBy:  "u1",
		ExecutedAt:  executedAt,
		DurationMs:  42,
		RowCount:    7,
		Status:      status,
		Fingerprint: "abcd1234",
	}
}

func TestExecutionRecordRepo_InsertAndList(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExecutionRecordRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r1", domain.ExecSuccess, now)))

	failed := newRecord("t1", "r1", domain.ExecError, now.Add(time.Minute))
	msg := "report query was malformed"
	failed.ErrorMessage = &msg
	require.NoError(t, repo.Insert(ctx, failed))

	records, total, err := repo.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, domain.ExecError, records[0].Status)
	require.NotNil(t, records[0].ErrorMessage)
	assert.Equal(t, msg, *records[0].ErrorMessage)
	assert.Nil(t, records[1].ErrorMessage)
}

func TestExecutionRecordRepo_ListFilters(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExecutionRecordRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r1", domain.ExecSuccess, now)))
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r2", domain.ExecTimeout, now)))
	require.NoError(t, repo.Insert(ctx, newRecord("t2", "r1", domain.ExecSuccess, now)))

	reportID := "r1"
	records, total, err := repo.List(ctx, "t1", domain.ExecutionFilter{ReportID: &reportID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ReportID)

	status := domain.ExecTimeout
	records, _, err = repo.List(ctx, "t1", domain.ExecutionFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r2", records[0].ReportID)
}

func TestExecutionRecordRepo_TopReports(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	defs := NewReportDefinitionRepo(writeDB)
	repo := NewExecutionRecordRepo(writeDB)
	ctx := context.Background()

	def, err := defs.Create(ctx, newDefinition("t1", "u1", "Named Report"))
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, newRecord("t1", def.ID, domain.ExecSuccess, now)))
	}
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "orphan", domain.ExecSuccess, now)))
	// failures do not count toward popularity
	require.NoError(t, repo.Insert(ctx, newRecord("t1", def.ID, domain.ExecError, now)))

	stats, err := repo.TopReports(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, def.ID, stats[0].ReportID)
	assert.Equal(t, "Named Report", stats[0].ReportName)
	assert.Equal(t, int64(3), stats[0].RunCount)
	assert.InDelta(t, 42.0, stats[0].AvgMs, 0.001)
	require.NotNil(t, stats[0].LastRunAt)

	// ledger rows without a surviving definition fall back to the id
	assert.Equal(t, "orphan", stats[1].ReportName)
}

func TestExecutionRecordRepo_DeleteOlderThan(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExecutionRecordRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r1", domain.ExecSuccess, now.AddDate(0, 0, -120))))
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r1", domain.ExecSuccess, now.AddDate(0, 0, -10))))
	require.NoError(t, repo.Insert(ctx, newRecord("t1", "r1", domain.ExecSuccess, now)))

	removed, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, total, err := repo.List(ctx, "t1", domain.ExecutionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
