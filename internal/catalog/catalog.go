// Package catalog holds the static registry of reportable fields: the mapping
// from a semantic field id to its physical relation, column (or derived
// expression), value kind, and permitted aggregations.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Field is one immutable catalog entry.
type Field struct {
	ID           string
	Label        string
	Relation     Relation
	Column       string // physical column; empty for derived fields
	Expression   string // SQL expression template; set only for derived fields
	Kind         domain.FieldKind
	Aggregations []domain.Aggregation
}

// Derived reports whether the field is computed from an expression template
// rather than a physical column. Derived fields are not filterable.
func (f Field) Derived() bool {
	return f.Expression != ""
}

// SQLExpr returns the alias-qualified expression this field resolves to.
func (f Field) SQLExpr() string {
	if f.Derived() {
		return f.Expression
	}
	return Alias(f.Relation) + "." + f.Column
}

// AllowsAggregation reports whether the given aggregation is permitted on
// this field. AggNone is always permitted.
func (f Field) AllowsAggregation(a domain.Aggregation) bool {
	if a == domain.AggNone {
		return true
	}
	for _, allowed := range f.Aggregations {
		if allowed == a {
			return true
		}
	}
	return false
}

// Catalog is the loaded field registry. Pure lookup table, no mutable state.
type Catalog struct {
	fields map[string]Field
	order  []string // declaration order, for stable ListAll output
}

type yamlField struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	Relation     string   `yaml:"relation"`
	Column       string   `yaml:"column"`
	Expression   string   `yaml:"expression"`
	Kind         string   `yaml:"kind"`
	Aggregations []string `yaml:"aggregations"`
}

type yamlCatalog struct {
	Fields []yamlField `yaml:"fields"`
}

// Load parses and validates the embedded catalog definition.
func Load() (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse field catalog: %w", err)
	}

	c := &Catalog{fields: make(map[string]Field, len(doc.Fields))}
	for _, yf := range doc.Fields {
		f, err := buildField(yf)
		if err != nil {
			return nil, err
		}
		if _, dup := c.fields[f.ID]; dup {
			return nil, fmt.Errorf("field catalog: duplicate field id %q", f.ID)
		}
		c.fields[f.ID] = f
		c.order = append(c.order, f.ID)
	}
	return c, nil
}

func buildField(yf yamlField) (Field, error) {
	if yf.ID == "" {
		return Field{}, fmt.Errorf("field catalog: entry without id")
	}
	rel := Relation(yf.Relation)
	if !KnownRelation(rel) {
		return Field{}, fmt.Errorf("field catalog: %q references unknown relation %q", yf.ID, yf.Relation)
	}
	if (yf.Column == "") == (yf.Expression == "") {
		return Field{}, fmt.Errorf("field catalog: %q must set exactly one of column or expression", yf.ID)
	}
	kind := domain.FieldKind(yf.Kind)
	if !kind.Valid() {
		return Field{}, fmt.Errorf("field catalog: %q has unknown kind %q", yf.ID, yf.Kind)
	}

	aggs := make([]domain.Aggregation, 0, len(yf.Aggregations))
	for _, a := range yf.Aggregations {
		agg := domain.Aggregation(a)
		if !agg.Valid() || agg == domain.AggNone {
			return Field{}, fmt.Errorf("field catalog: %q lists unknown aggregation %q", yf.ID, a)
		}
		aggs = append(aggs, agg)
	}

	return Field{
		ID:           yf.ID,
		Label:        yf.Label,
		Relation:     rel,
		Column:       yf.Column,
		Expression:   yf.Expression,
		Kind:         kind,
		Aggregations: aggs,
	}, nil
}

// Lookup resolves a field id to its catalog entry.
func (c *Catalog) Lookup(fieldID string) (Field, error) {
	f, ok := c.fields[fieldID]
	if !ok {
		return Field{}, domain.ErrNotFound("unknown report field %q", fieldID)
	}
	return f, nil
}

// ListAll returns every catalog entry in declaration order. Pure projection,
// no side effects; backs the field discovery endpoint.
func (c *Catalog) ListAll() []Field {
	out := make([]Field, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.fields[id])
	}
	return out
}

var (
	defaultCatalog *Catalog
	defaultErr     error
	defaultOnce    sync.Once
)

// Default returns the process-wide catalog, loading it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load()
	})
	return defaultCatalog, defaultErr
}
