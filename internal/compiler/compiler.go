// Package compiler turns a declarative report spec plus tenant context into a
// parameterized SQL query. Clause structure comes only from the field catalog;
// caller-supplied filter values are always carried as bound arguments.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Mahaan-Amr/servaan-sub004/internal/catalog"
	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// CompiledQuery is the execution-ready representation of a report. SQL and
// Args are handed to the storage collaborator together; Args never appear in
// the clause text.
type CompiledQuery struct {
	SQL     string
	Args    []any
	Columns []string // output labels, in SELECT order
	GroupBy []string
	// Fingerprint identifies the query shape (not its argument values) for
	// the performance-monitoring collaborator.
	Fingerprint string
	// Warnings explain filters and sorts that were dropped during
	// compilation so the caller can surface why they had no effect.
	Warnings []Warning
	// rawFilterValues holds the string operands seen during compilation for
	// the security gate's value scan.
	rawFilterValues []string
}

// RawFilterValues returns the string filter operands seen during compilation.
func (q *CompiledQuery) RawFilterValues() []string {
	return q.rawFilterValues
}

// Warning describes one input element the compiler dropped.
type Warning struct {
	FieldID string `json:"field_id"`
	Reason  string `json:"reason"`
}

// Compiler resolves report specs against the field catalog. Stateless and
// safe for concurrent use.
type Compiler struct {
	catalog *catalog.Catalog
}

// New creates a Compiler over the given field catalog.
func New(cat *catalog.Catalog) *Compiler {
	return &Compiler{catalog: cat}
}

// Compile assembles the query for one report execution. Compilation is pure
// and deterministic: identical inputs yield an identical CompiledQuery.
// It fails closed: no error from here ever reaches the storage collaborator.
func (c *Compiler) Compile(spec domain.ReportSpec, tenant domain.Identity, params *domain.RuntimeParams) (*CompiledQuery, error) {
	if !tenant.Valid() {
		return nil, domain.ErrSecurityViolation("tenant context is required for report compilation")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cols, err := c.resolveColumns(spec.Columns)
	if err != nil {
		return nil, err
	}

	out := &CompiledQuery{}
	required := map[catalog.Relation]bool{}
	for _, rc := range cols {
		required[rc.field.Relation] = true
	}

	preds, predRelations, err := c.resolveFilters(spec.Filters, out)
	if err != nil {
		return nil, err
	}
	for rel := range predRelations {
		required[rel] = true
	}

	// Derived fields carry their own aggregate expression, so they force the
	// grouped shape the same way an explicit aggregation does.
	hasAgg := false
	for _, rc := range cols {
		if rc.column.Aggregation != domain.AggNone || rc.field.Derived() {
			hasAgg = true
			break
		}
	}

	groupBy := groupByEntries(cols, hasAgg)
	orderBy, orderRelations, err := c.resolveOrdering(spec.Sort, hasAgg, groupBy, out)
	if err != nil {
		return nil, err
	}
	for rel := range orderRelations {
		required[rel] = true
	}

	runtimePreds := runtimePredicates(params, required)
	preds = append(preds, runtimePreds...)

	// Assemble. The tenant predicate is structural and always first, followed
	// by the active-rows predicate; filter input can never displace them.
	builder := sq.Select(selectExprs(cols)...).
		From(fmt.Sprintf("items %s", catalog.RootAlias)).
		Where(sq.Eq{catalog.RootAlias + ".tenant_id": tenant.TenantID}).
		Where(sq.Eq{catalog.RootAlias + ".is_active": 1})

	for _, join := range catalog.ResolveJoins(required) {
		builder = builder.JoinClause(join)
	}
	for _, p := range preds {
		builder = builder.Where(p)
	}
	if len(groupBy) > 0 {
		builder = builder.GroupBy(groupBy...)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}

	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("assemble query: %w", err)
	}

	out.SQL = sqlText
	out.Args = args
	out.GroupBy = groupBy
	for _, rc := range cols {
		out.Columns = append(out.Columns, rc.label())
	}
	out.Fingerprint = fingerprint(sqlText)
	return out, nil
}

// resolvedColumn pairs a report column with its catalog entry.
type resolvedColumn struct {
	column domain.ReportColumn
	field  catalog.Field
}

// label is the output column label: the caller's label when given, the
// catalog label otherwise.
func (rc resolvedColumn) label() string {
	if rc.column.Label != "" {
		return rc.column.Label
	}
	return rc.field.Label
}

func (c *Compiler) resolveColumns(columns []domain.ReportColumn) ([]resolvedColumn, error) {
	out := make([]resolvedColumn, 0, len(columns))
	for _, col := range columns {
		f, err := c.catalog.Lookup(col.FieldID)
		if err != nil {
			return nil, domain.ErrValidation("unknown report field %q", col.FieldID)
		}
		if col.Aggregation != domain.AggNone {
			if f.Derived() {
				return nil, domain.ErrValidation("derived field %q cannot be aggregated", col.FieldID)
			}
			if !f.AllowsAggregation(col.Aggregation) {
				return nil, domain.ErrValidation("field %q does not permit aggregation %q", col.FieldID, col.Aggregation)
			}
		}
		out = append(out, resolvedColumn{column: col, field: f})
	}
	return out, nil
}

func selectExprs(cols []resolvedColumn) []string {
	exprs := make([]string, 0, len(cols))
	for _, rc := range cols {
		expr := rc.field.SQLExpr()
		if rc.column.Aggregation != domain.AggNone {
			expr = fmt.Sprintf("%s(%s)", rc.column.Aggregation.SQLFunc(), expr)
		}
		exprs = append(exprs, fmt.Sprintf("%s AS %q", expr, rc.label()))
	}
	return exprs
}

// resolveFilters builds one predicate per usable filter, applying the skip
// rules: derived fields, empty values, and structurally invalid operator/value
// shapes are dropped with a warning, never an error.
func (c *Compiler) resolveFilters(filters []domain.ReportFilter, out *CompiledQuery) ([]sq.Sqlizer, map[catalog.Relation]bool, error) {
	var preds []sq.Sqlizer
	relations := map[catalog.Relation]bool{}

	for _, f := range filters {
		field, err := c.catalog.Lookup(f.FieldID)
		if err != nil {
			return nil, nil, domain.ErrValidation("filter references unknown field %q", f.FieldID)
		}
		if field.Derived() {
			out.warn(f.FieldID, "derived fields cannot be filtered; filter ignored")
			continue
		}
		if emptyValue(f.Value) {
			out.warn(f.FieldID, "filter has no value; filter ignored")
			continue
		}

		pred, ok := buildPredicate(field.SQLExpr(), f, out)
		if !ok {
			continue
		}
		collectRawValues(f.Value, out)
		preds = append(preds, pred)
		relations[field.Relation] = true
	}
	return preds, relations, nil
}

func buildPredicate(expr string, f domain.ReportFilter, out *CompiledQuery) (sq.Sqlizer, bool) {
	switch f.Operator {
	case domain.OpEquals:
		return sq.Eq{expr: f.Value}, true
	case domain.OpContains:
		s, ok := f.Value.(string)
		if !ok {
			out.warn(f.FieldID, "contains requires a text value; filter ignored")
			return nil, false
		}
		return sq.Like{expr: "%" + s + "%"}, true
	case domain.OpGreaterThan:
		return sq.Gt{expr: f.Value}, true
	case domain.OpLessThan:
		return sq.Lt{expr: f.Value}, true
	case domain.OpBetween:
		bounds, ok := valueList(f.Value)
		if !ok || len(bounds) != 2 {
			out.warn(f.FieldID, "between requires exactly two bounds; filter ignored")
			return nil, false
		}
		return sq.Expr(fmt.Sprintf("%s BETWEEN ? AND ?", expr), bounds[0], bounds[1]), true
	case domain.OpIn:
		values, ok := valueList(f.Value)
		if !ok || len(values) == 0 {
			out.warn(f.FieldID, "in requires a non-empty value list; filter ignored")
			return nil, false
		}
		return sq.Eq{expr: values}, true
	}
	// Unreachable: operators are validated by ReportSpec.Validate.
	out.warn(f.FieldID, "unknown operator; filter ignored")
	return nil, false
}

// runtimePredicates appends the date-window and item-scoping predicates using
// the same skip rules as report filters. The date window binds to the entry
// date and therefore requires the inventory relation.
func runtimePredicates(params *domain.RuntimeParams, required map[catalog.Relation]bool) []sq.Sqlizer {
	if params == nil {
		return nil
	}

	var preds []sq.Sqlizer
	entryDate := catalog.Alias(catalog.RelInventoryEntries) + ".entry_date"
	if params.DateFrom != nil {
		preds = append(preds, sq.GtOrEq{entryDate: *params.DateFrom})
		required[catalog.RelInventoryEntries] = true
	}
	if params.DateTo != nil {
		preds = append(preds, sq.LtOrEq{entryDate: *params.DateTo})
		required[catalog.RelInventoryEntries] = true
	}
	if len(params.ItemIDs) > 0 {
		preds = append(preds, sq.Eq{catalog.RootAlias + ".id": params.ItemIDs})
	}
	return preds
}

// groupByEntries returns the resolved expression of every non-aggregated,
// non-derived column when any aggregation is active, deduplicated in column
// order. Without aggregation there is no grouping.
func groupByEntries(cols []resolvedColumn, hasAgg bool) []string {
	if !hasAgg {
		return nil
	}
	var groupBy []string
	seen := map[string]bool{}
	for _, rc := range cols {
		if rc.column.Aggregation != domain.AggNone || rc.field.Derived() {
			continue
		}
		expr := rc.field.SQLExpr()
		if !seen[expr] {
			seen[expr] = true
			groupBy = append(groupBy, expr)
		}
	}
	return groupBy
}

// resolveOrdering honors sorts compatible with the grouped shape of the query.
// With grouping active, only sort fields already in GROUP BY survive; the rest
// are dropped (with a warning) so the grouped query stays well-formed.
func (c *Compiler) resolveOrdering(sorts []domain.SortSpec, hasAgg bool, groupBy []string, out *CompiledQuery) ([]string, map[catalog.Relation]bool, error) {
	grouped := map[string]bool{}
	for _, g := range groupBy {
		grouped[g] = true
	}

	var orderBy []string
	relations := map[catalog.Relation]bool{}
	for _, s := range sorts {
		field, err := c.catalog.Lookup(s.FieldID)
		if err != nil {
			return nil, nil, domain.ErrValidation("sort references unknown field %q", s.FieldID)
		}
		expr := field.SQLExpr()
		if hasAgg && !grouped[expr] {
			out.warn(s.FieldID, "sort field is not part of the grouped result; sort ignored")
			continue
		}
		orderBy = append(orderBy, expr+" "+sortDirection(s.Direction))
		relations[field.Relation] = true
	}

	if len(orderBy) == 0 {
		if hasAgg {
			if len(groupBy) > 0 {
				orderBy = []string{groupBy[0] + " ASC"}
			}
		} else {
			orderBy = []string{catalog.RootAlias + ".created_at DESC"}
		}
	}
	return orderBy, relations, nil
}

func sortDirection(d domain.SortDirection) string {
	if d == domain.SortDesc {
		return "DESC"
	}
	return "ASC"
}

func (q *CompiledQuery) warn(fieldID, reason string) {
	q.Warnings = append(q.Warnings, Warning{FieldID: fieldID, Reason: reason})
}

func emptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	return false
}

// valueList normalizes list-shaped operands (between bounds, in lists).
func valueList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func collectRawValues(v any, out *CompiledQuery) {
	switch val := v.(type) {
	case string:
		out.rawFilterValues = append(out.rawFilterValues, val)
	case []any:
		for _, item := range val {
			collectRawValues(item, out)
		}
	case []string:
		out.rawFilterValues = append(out.rawFilterValues, val...)
	}
}

func fingerprint(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return hex.EncodeToString(sum[:8])
}
