package report

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahaan-Amr/servaan-sub004/internal/catalog"
	"github.com/Mahaan-Amr/servaan-sub004/internal/compiler"
	"github.com/Mahaan-Amr/servaan-sub004/internal/db"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/engine"
	"github.com/Mahaan-Amr/servaan-sub004/internal/repository"
	"github.com/Mahaan-Amr/servaan-sub004/internal/security"
)

type fixture struct {
	svc     *Service
	ledger  *repository.ExecutionRecordRepo
	defs    *repository.ReportDefinitionRepo
	writeDB *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	writeDB, readDB := db.OpenTestSQLite(t)
	cat, err := catalog.Load()
	require.NoError(t, err)

	defs := repository.NewReportDefinitionRepo(writeDB)
	ledger := repository.NewExecutionRecordRepo(writeDB)
	svc := NewService(defs, ledger, cat, compiler.New(cat), security.NewGate(nil), engine.New(readDB, nil, nil), nil, nil)

	return &fixture{svc: svc, ledger: ledger, defs: defs, writeDB: writeDB}
}

func (f *fixture) seedInventory(t *testing.T, tenantID string) {
	t.Helper()

	db.MustExec(t, f.writeDB, `INSERT INTO categories (id, tenant_id, name) VALUES ('cat1', ?, 'Beverages')`, tenantID)
	db.MustExec(t, f.writeDB, `INSERT INTO items (id, tenant_id, category_id, name, unit, sale_price, purchase_price)
	          VALUES ('item1', ?, 'cat1', 'Espresso Beans', 'kg', 48, 31.5)`, tenantID)
	db.MustExec(t, f.writeDB, `INSERT INTO items (id, tenant_id, category_id, name, unit, sale_price, purchase_price)
	          VALUES ('item2', ?, 'cat1', 'Oat Milk', 'liter', 3.1, 2.2)`, tenantID)
	db.MustExec(t, f.writeDB, `INSERT INTO inventory_entries (id, tenant_id, item_id, quantity, entry_type)
	          VALUES ('e1', ?, 'item1', 40, 'in')`, tenantID)
	db.MustExec(t, f.writeDB, `INSERT INTO inventory_entries (id, tenant_id, item_id, quantity, entry_type)
	          VALUES ('e2', ?, 'item2', 80, 'in')`, tenantID)
}

func (f *fixture) ledgerTotal(t *testing.T, tenantID string) int64 {
	t.Helper()
	_, total, err := f.ledger.List(context.Background(), tenantID, domain.ExecutionFilter{})
	require.NoError(t, err)
	return total
}

func caller() domain.Identity {
	return domain.Identity{UserID: "u1", TenantID: "t1"}
}

func simpleSpec() domain.ReportSpec {
	return domain.ReportSpec{
		Columns: []domain.ReportColumn{
			{FieldID: "item_name"},
			{FieldID: "quantity", Aggregation: domain.AggSum},
		},
		Sort: []domain.SortSpec{{FieldID: "item_name", Direction: domain.SortAsc}},
	}
}

func TestService_ListFields(t *testing.T) {
	f := newFixture(t)

	fields := f.svc.ListFields()
	require.NotEmpty(t, fields)

	byID := map[string]FieldInfo{}
	for _, fi := range fields {
		byID[fi.ID] = fi
	}

	name := byID["item_name"]
	assert.Equal(t, "Item Name", name.Label)
	assert.True(t, name.Filterable)
	assert.False(t, name.Derived)

	stock := byID["current_stock"]
	assert.True(t, stock.Derived)
	assert.False(t, stock.Filterable)
	assert.Empty(t, stock.Aggregations)
}

func TestService_CreateRequiresTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.Identity{UserID: "u1"}, CreateInput{
		Name: "Stock",
		Spec: simpleSpec(),
	})

	var sec *domain.SecurityViolationError
	require.ErrorAs(t, err, &sec)
}

func TestService_CreateRejectsUnknownField(t *testing.T) {
	f := newFixture(t)

	spec := simpleSpec()
	spec.Filters = []domain.ReportFilter{{FieldID: "nonexistent", Operator: domain.OpEquals, Value: "x"}}

	_, err := f.svc.Create(context.Background(), caller(), CreateInput{Name: "Bad", Spec: spec})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "nonexistent")
}

func TestService_CreateDeduplicatesShareList(t *testing.T) {
	f := newFixture(t)

	def, err := f.svc.Create(context.Background(), caller(), CreateInput{
		Name:       "Shared Stock",
		Spec:       simpleSpec(),
		SharedWith: []string{"u2", "u2", "u3"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2", "u3"}, def.SharedWith)
	assert.Equal(t, "u1", def.OwnerID)
	assert.Equal(t, "t1", def.TenantID)
}

func TestService_GetInvisibleIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Private", Spec: simpleSpec()})
	require.NoError(t, err)

	// a teammate who is neither owner nor shared sees nothing
	_, err = f.svc.Get(ctx, domain.Identity{UserID: "u2", TenantID: "t1"}, def.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestService_UpdateIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{
		Name:     "Public Stock",
		Spec:     simpleSpec(),
		IsPublic: true,
	})
	require.NoError(t, err)

	// visible but not owned
	_, err = f.svc.Update(ctx, domain.Identity{UserID: "u2", TenantID: "t1"}, def.ID, CreateInput{
		Name: "Hijacked",
		Spec: simpleSpec(),
	})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	updated, err := f.svc.Update(ctx, caller(), def.ID, CreateInput{Name: "Renamed", Spec: simpleSpec()})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestService_ShareOpensVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teammate := domain.Identity{UserID: "u2", TenantID: "t1"}

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Stock", Spec: simpleSpec()})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, teammate, def.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = f.svc.Share(ctx, caller(), def.ID, []string{"u2"}, false)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, teammate, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
}

func TestService_DeleteHidesButKeepsHistory(t *testing.T) {
	f := newFixture(t)
	f.seedInventory(t, "t1")
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Stock", Spec: simpleSpec()})
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, caller(), def.ID, domain.RuntimeParams{}, ExecuteOptions{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, caller(), def.ID))

	_, err = f.svc.Get(ctx, caller(), def.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	// ledger rows survive the definition
	assert.Equal(t, int64(1), f.ledgerTotal(t, "t1"))
}

func TestService_HistoryRequiresVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def, err := f.svc.Create(ctx, caller(), CreateInput{Name: "Private", Spec: simpleSpec()})
	require.NoError(t, err)

	_, _, err = f.svc.History(ctx, domain.Identity{UserID: "u2", TenantID: "t1"}, def.ID, domain.PageRequest{})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
