package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahaan-Amr/servaan-sub004/internal/db"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

func sampleSpec() domain.ReportSpec {
	return domain.ReportSpec{
		Columns: []domain.ReportColumn{
			{FieldID: "item_name"},
			{FieldID: "quantity", Aggregation: domain.AggSum},
		},
	}
}

func newDefinition(tenantID, ownerID, name string) *domain.ReportDefinition {
	return &domain.ReportDefinition{
		Name:     name,
		TenantID: tenantID,
		OwnerID:  ownerID,
		Spec:     sampleSpec(),
	}
}

func TestReportDefinitionRepo_CreateAndGet(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Stock Report"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	got, err := repo.GetByID(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stock Report", got.Name)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, sampleSpec(), got.Spec)
	assert.Equal(t, int64(0), got.ExecutionCount)
	assert.Nil(t, got.LastRunAt)
}

func TestReportDefinitionRepo_GetScopedByTenant(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Stock Report"))
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "t2", created.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestReportDefinitionRepo_ListVisible(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	owned := newDefinition("t1", "u1", "Mine")
	_, err := repo.Create(ctx, owned)
	require.NoError(t, err)

	public := newDefinition("t1", "u2", "Everyone")
	public.IsPublic = true
	_, err = repo.Create(ctx, public)
	require.NoError(t, err)

	shared := newDefinition("t1", "u2", "Shared With Me")
	shared.SharedWith = []string{"u1", "u3"}
	_, err = repo.Create(ctx, shared)
	require.NoError(t, err)

	private := newDefinition("t1", "u2", "Not For Me")
	_, err = repo.Create(ctx, private)
	require.NoError(t, err)

	defs, total, err := repo.ListVisible(ctx, "t1", "u1", domain.ReportListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{"Mine", "Everyone", "Shared With Me"}, names)
}

func TestReportDefinitionRepo_ListVisibleSearch(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	for _, name := range []string{"Daily Stock", "Weekly Stock", "Supplier Costs"} {
		_, err := repo.Create(ctx, newDefinition("t1", "u1", name))
		require.NoError(t, err)
	}

	defs, total, err := repo.ListVisible(ctx, "t1", "u1", domain.ReportListFilter{Search: "Stock"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, defs, 2)
}

func TestReportDefinitionRepo_Update(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Before"))
	require.NoError(t, err)

	created.Name = "After"
	created.IsPublic = true
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.GetByID(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.True(t, got.IsPublic)
}

func TestReportDefinitionRepo_UpdateMissing(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)

	ghost := newDefinition("t1", "u1", "Ghost")
	ghost.ID = "does-not-exist"
	err := repo.Update(context.Background(), ghost)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestReportDefinitionRepo_SoftDelete(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Doomed"))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, "t1", created.ID))

	_, err = repo.GetByID(ctx, "t1", created.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// the row itself survives for ledger references
	var n int
	require.NoError(t, writeDB.QueryRow(
		`SELECT COUNT(*) FROM report_definitions WHERE id = ?`, created.ID).Scan(&n))
	assert.Equal(t, 1, n)

	// deleting twice reports not found
	err = repo.SoftDelete(ctx, "t1", created.ID)
	require.ErrorAs(t, err, &notFound)
}

func TestReportDefinitionRepo_RecordSuccessIncrementalMean(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Tracked"))
	require.NoError(t, err)

	require.NoError(t, repo.RecordSuccess(ctx, "t1", created.ID, 100))
	require.NoError(t, repo.RecordSuccess(ctx, "t1", created.ID, 200))
	require.NoError(t, repo.RecordSuccess(ctx, "t1", created.ID, 600))

	got, err := repo.GetByID(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ExecutionCount)
	assert.InDelta(t, 300.0, got.AvgExecutionMs, 0.001)
	require.NotNil(t, got.LastRunAt)
}

func TestReportDefinitionRepo_RecordSuccessConcurrent(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewReportDefinitionRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, newDefinition("t1", "u1", "Contended"))
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(durationMs int64) {
			defer wg.Done()
			errs <- repo.RecordSuccess(ctx, "t1", created.ID, durationMs)
		}(int64((i + 1) * 100))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, "t1", created.ID)
	require.NoError(t, err)
	// no increment may be lost: count reflects every successful run and the
	// mean is the exact average of all observed durations
	assert.Equal(t, int64(workers), got.ExecutionCount)
	assert.InDelta(t, 550.0, got.AvgExecutionMs, 0.001)
}
