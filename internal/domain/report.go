package domain

import (
	"fmt"
	"time"
)

// FieldKind classifies the value type of a catalog field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindDate     FieldKind = "date"
	KindBoolean  FieldKind = "boolean"
	KindCurrency FieldKind = "currency"
)

// Valid reports whether the kind is one of the closed set.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindDate, KindBoolean, KindCurrency:
		return true
	}
	return false
}

// Aggregation is the closed set of aggregate functions a report column may apply.
type Aggregation string

const (
	AggNone  Aggregation = ""
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

// Valid reports whether the aggregation is one of the closed set.
func (a Aggregation) Valid() bool {
	switch a {
	case AggNone, AggSum, AggAvg, AggCount, AggMin, AggMax:
		return true
	}
	return false
}

// SQLFunc returns the SQL function name for a non-None aggregation.
func (a Aggregation) SQLFunc() string {
	switch a {
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggCount:
		return "COUNT"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	}
	return ""
}

// FilterOperator is the closed set of comparison operators a report filter may use.
type FilterOperator string

const (
	OpEquals      FilterOperator = "equals"
	OpContains    FilterOperator = "contains"
	OpGreaterThan FilterOperator = "greater_than"
	OpLessThan    FilterOperator = "less_than"
	OpBetween     FilterOperator = "between"
	OpIn          FilterOperator = "in"
)

// Valid reports whether the operator is one of the closed set.
func (o FilterOperator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpGreaterThan, OpLessThan, OpBetween, OpIn:
		return true
	}
	return false
}

// SortDirection orders a sort field ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether the direction is one of the closed set.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// ReportColumn selects one catalog field for a report, optionally aggregated.
// Column order is significant: it defines SELECT order and default grouping order.
type ReportColumn struct {
	FieldID     string      `json:"field_id"`
	Aggregation Aggregation `json:"aggregation,omitempty"`
	Label       string      `json:"label,omitempty"`
}

// ReportFilter restricts report rows by one catalog field. Values are carried
// as opaque operands; they are bound as query parameters, never spliced into
// clause text.
type ReportFilter struct {
	FieldID  string         `json:"field_id"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// SortSpec orders report rows by one catalog field.
type SortSpec struct {
	FieldID   string        `json:"field_id"`
	Direction SortDirection `json:"direction"`
}

// ReportSpec is the caller-authored part of a report: chosen columns, filters,
// and sort order. It is the compiler's input, shared by persisted definitions
// and ad-hoc previews.
type ReportSpec struct {
	Columns []ReportColumn `json:"columns"`
	Filters []ReportFilter `json:"filters,omitempty"`
	Sort    []SortSpec     `json:"sort,omitempty"`
}

// Validate checks structural well-formedness of the spec. At least one column
// is required; unknown enum members are rejected here so they cannot fall
// through silently later.
func (s ReportSpec) Validate() error {
	if len(s.Columns) == 0 {
		return ErrValidation("report requires at least one column")
	}
	for i, col := range s.Columns {
		if col.FieldID == "" {
			return ErrValidation("column %d: field_id is required", i)
		}
		if !col.Aggregation.Valid() {
			return ErrValidation("column %q: unknown aggregation %q", col.FieldID, col.Aggregation)
		}
	}
	for _, f := range s.Filters {
		if f.FieldID == "" {
			return ErrValidation("filter: field_id is required")
		}
		if !f.Operator.Valid() {
			return ErrValidation("filter %q: unknown operator %q", f.FieldID, f.Operator)
		}
	}
	for _, srt := range s.Sort {
		if srt.FieldID == "" {
			return ErrValidation("sort: field_id is required")
		}
		if srt.Direction != "" && !srt.Direction.Valid() {
			return ErrValidation("sort %q: unknown direction %q", srt.FieldID, srt.Direction)
		}
	}
	return nil
}

// ReportDefinition is a persisted, user-authored report. Mutated only by its
// owner; soft-deleted so the execution ledger stays referentially intact.
type ReportDefinition struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	OwnerID        string     `json:"owner_id"`
	TenantID       string     `json:"tenant_id"`
	Spec           ReportSpec `json:"spec"`
	IsPublic       bool       `json:"is_public"`
	SharedWith     []string   `json:"shared_with,omitempty"`
	ExecutionCount int64      `json:"execution_count"`
	AvgExecutionMs float64    `json:"avg_execution_ms"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// VisibleTo reports whether a caller may read (and run) this definition:
// the owner, anyone in the share list, or anyone at all when public.
func (d *ReportDefinition) VisibleTo(userID string) bool {
	if d.OwnerID == userID || d.IsPublic {
		return true
	}
	for _, u := range d.SharedWith {
		if u == userID {
			return true
		}
	}
	return false
}

// RuntimeParams scope a single execution without changing the stored
// definition: an optional date window and an optional item id list.
type RuntimeParams struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	ItemIDs  []string   `json:"item_ids,omitempty"`
}

// ExportFormat names a rendering target for the export collaborator.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
	FormatPDF   ExportFormat = "pdf"
)

// Valid reports whether f is a member of the closed format set.
func (f ExportFormat) Valid() bool {
	switch f {
	case FormatCSV, FormatExcel, FormatPDF:
		return true
	}
	return false
}

// ParseExportFormat validates a caller-supplied format string.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV, FormatExcel, FormatPDF:
		return ExportFormat(s), nil
	}
	return "", ErrValidation("unknown export format %q", s)
}

// ReportListFilter holds filter parameters for listing report definitions.
type ReportListFilter struct {
	Search string
	Page   PageRequest
}

func (d *ReportDefinition) String() string {
	return fmt.Sprintf("report %s (%q, tenant %s)", d.ID, d.Name, d.TenantID)
}
