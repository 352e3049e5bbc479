// Package schema is the dialect-neutral model produced by introspection:
// tables, columns, routines, parameters and constraints, plus the
// ColumnSpec pipeline used to turn abstract column requests into DDL.
//
// Everything here is plain data. Objects are built fresh per request and
// never hold a connection.
package schema

import (
	"encoding/json"
	"strings"
)

// ColumnSchema describes one column. Type is always a simple type; DbType
// keeps the native type name for reference.
type ColumnSchema struct {
	Name              string `json:"name"`
	QuotedName        string `json:"quoted_name"`
	Type              string `json:"type"`
	DbType            string `json:"db_type"`
	AllowNull         bool   `json:"allow_null"`
	IsPrimaryKey      bool   `json:"is_primary_key"`
	IsForeignKey      bool   `json:"is_foreign_key"`
	IsUnique          bool   `json:"is_unique"`
	RefTable          string `json:"ref_table,omitempty"`
	RefField          string `json:"ref_field,omitempty"`
	Precision         *int   `json:"precision"`
	Scale             *int   `json:"scale"`
	Size              *int   `json:"size"`
	FixedLength       bool   `json:"fixed_length"`
	SupportsMultibyte bool   `json:"supports_multibyte"`
	AutoIncrement     bool   `json:"auto_increment"`
	DefaultValue      any    `json:"default"`
	Comment           string `json:"comment"`

	// Nested holds the element columns of a nested-table column.
	Nested []*ColumnSchema `json:"nested_columns,omitempty"`
}

// IsNestedTable reports whether the column is a nested-table collection.
func (c *ColumnSchema) IsNestedTable() bool {
	return c.Type == TypeTable
}

// NormalizeSize applies the catalog sizing rules: a positive precision with
// no positive scale is an integer-like size, a non-positive precision means
// a variable-width column sized by its byte length (non-positive = unbounded).
func (c *ColumnSchema) NormalizeSize(precision, scale, length int) {
	c.Precision, c.Scale, c.Size = nil, nil, nil
	if precision > 0 {
		c.Precision = &precision
		if scale <= 0 {
			c.Size = &precision
		} else {
			c.Scale = &scale
		}
		return
	}
	if length > 0 {
		c.Size = &length
	}
}

// ToMap renders the column the way the host serialises schema resources.
// Nested-table element columns appear under native.nested_columns keyed by name.
func (c *ColumnSchema) ToMap() map[string]any {
	m := map[string]any{
		"name":               c.Name,
		"type":               c.Type,
		"db_type":            c.DbType,
		"allow_null":         c.AllowNull,
		"is_primary_key":     c.IsPrimaryKey,
		"is_foreign_key":     c.IsForeignKey,
		"is_unique":          c.IsUnique,
		"fixed_length":       c.FixedLength,
		"supports_multibyte": c.SupportsMultibyte,
		"auto_increment":     c.AutoIncrement,
		"default":            c.DefaultValue,
		"comment":            c.Comment,
		"precision":          intOrNil(c.Precision),
		"scale":              intOrNil(c.Scale),
		"size":               intOrNil(c.Size),
	}
	if c.RefTable != "" {
		m["ref_table"] = c.RefTable
		m["ref_field"] = c.RefField
	}
	if len(c.Nested) > 0 {
		nested := make(map[string]any, len(c.Nested))
		for _, n := range c.Nested {
			nested[n.Name] = n.ToMap()
		}
		m["native"] = map[string]any{"nested_columns": nested}
	}
	return m
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// ColumnSet is an ordered set of columns keyed by lower-case name.
// Iteration order is insertion order.
type ColumnSet struct {
	order  []string
	byName map[string]*ColumnSchema
}

// NewColumnSet returns an empty set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{byName: map[string]*ColumnSchema{}}
}

// Add inserts or replaces c, keeping the original position on replace.
func (s *ColumnSet) Add(c *ColumnSchema) {
	key := strings.ToLower(c.Name)
	if _, ok := s.byName[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byName[key] = c
}

// Get looks a column up case-insensitively.
func (s *ColumnSet) Get(name string) (*ColumnSchema, bool) {
	c, ok := s.byName[strings.ToLower(name)]
	return c, ok
}

// All returns the columns in order.
func (s *ColumnSet) All() []*ColumnSchema {
	out := make([]*ColumnSchema, len(s.order))
	for i, k := range s.order {
		out[i] = s.byName[k]
	}
	return out
}

// Names returns the column names in order.
func (s *ColumnSet) Names() []string {
	out := make([]string, len(s.order))
	for i, k := range s.order {
		out[i] = s.byName[k].Name
	}
	return out
}

// Len returns the number of columns.
func (s *ColumnSet) Len() int { return len(s.order) }

func (s *ColumnSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}

func (s *ColumnSet) UnmarshalJSON(b []byte) error {
	var cols []*ColumnSchema
	if err := json.Unmarshal(b, &cols); err != nil {
		return err
	}
	*s = *NewColumnSet()
	for _, c := range cols {
		s.Add(c)
	}
	return nil
}

// TableSchema describes a table or view.
type TableSchema struct {
	Schema       string     `json:"schema"`
	ResourceName string     `json:"resource_name"`
	Name         string     `json:"name"`
	InternalName string     `json:"internal_name"`
	QuotedName   string     `json:"quoted_name"`
	IsView       bool       `json:"is_view"`
	PrimaryKey   []string   `json:"primary_key"`
	SequenceName string     `json:"sequence_name,omitempty"`
	Columns      *ColumnSet `json:"columns"`
}

// NewTable returns a table with an empty column set.
func NewTable(schemaName, resource string) *TableSchema {
	return &TableSchema{Schema: schemaName, ResourceName: resource, Name: resource, Columns: NewColumnSet()}
}

// AddPrimaryKey records a primary-key column once.
func (t *TableSchema) AddPrimaryKey(name string) {
	for _, pk := range t.PrimaryKey {
		if strings.EqualFold(pk, name) {
			return
		}
	}
	t.PrimaryKey = append(t.PrimaryKey, name)
}

// Column looks a column up case-insensitively.
func (t *TableSchema) Column(name string) (*ColumnSchema, bool) {
	if t.Columns == nil {
		return nil, false
	}
	return t.Columns.Get(name)
}

// ToMap renders the table and its columns.
func (t *TableSchema) ToMap() map[string]any {
	fields := []map[string]any{}
	if t.Columns != nil {
		for _, c := range t.Columns.All() {
			fields = append(fields, c.ToMap())
		}
	}
	m := map[string]any{
		"name":        t.Name,
		"schema":      t.Schema,
		"is_view":     t.IsView,
		"primary_key": t.PrimaryKey,
		"field":       fields,
	}
	if t.SequenceName != "" {
		m["sequence_name"] = t.SequenceName
	}
	return m
}
