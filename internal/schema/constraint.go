package schema

import "strings"

// Constraint types as reported after normalisation.
const (
	ConstraintPrimary = "primary key"
	ConstraintForeign = "foreign key"
	ConstraintUnique  = "unique"
	ConstraintCheck   = "check"
)

// ConstraintKey identifies a constraint; all parts are lower case.
type ConstraintKey struct {
	Schema string
	Table  string
	Name   string
}

// Key builds a ConstraintKey from catalog names.
func Key(schemaName, table, name string) ConstraintKey {
	return ConstraintKey{strings.ToLower(schemaName), strings.ToLower(table), strings.ToLower(name)}
}

// Constraint is a transient constraint record. Columns and RefColumns keep
// catalog order.
type Constraint struct {
	Schema     string   `json:"schema"`
	Table      string   `json:"table"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Columns    []string `json:"columns"`
	RefSchema  string   `json:"ref_schema,omitempty"`
	RefTable   string   `json:"ref_table,omitempty"`
	RefColumns []string `json:"ref_columns,omitempty"`
}

// Constraints accumulates constraint rows, merging multi-column
// constraints into one record per key.
type Constraints struct {
	order []ConstraintKey
	byKey map[ConstraintKey]*Constraint
}

// NewConstraints returns an empty accumulator.
func NewConstraints() *Constraints {
	return &Constraints{byKey: map[ConstraintKey]*Constraint{}}
}

// Merge adds c, appending its columns to an existing record with the same key.
func (cs *Constraints) Merge(c Constraint) {
	k := Key(c.Schema, c.Table, c.Name)
	if cur, ok := cs.byKey[k]; ok {
		cur.Columns = append(cur.Columns, c.Columns...)
		cur.RefColumns = append(cur.RefColumns, c.RefColumns...)
		return
	}
	cp := c
	cp.Columns = append([]string(nil), c.Columns...)
	cp.RefColumns = append([]string(nil), c.RefColumns...)
	cs.order = append(cs.order, k)
	cs.byKey[k] = &cp
}

// Get returns the constraint for k.
func (cs *Constraints) Get(k ConstraintKey) (*Constraint, bool) {
	c, ok := cs.byKey[k]
	return c, ok
}

// All returns the constraints in first-seen order.
func (cs *Constraints) All() []*Constraint {
	out := make([]*Constraint, len(cs.order))
	for i, k := range cs.order {
		out[i] = cs.byKey[k]
	}
	return out
}

// ForTable returns the constraints of one table.
func (cs *Constraints) ForTable(schemaName, table string) []*Constraint {
	s, t := strings.ToLower(schemaName), strings.ToLower(table)
	var out []*Constraint
	for _, k := range cs.order {
		if k.Schema == s && k.Table == t {
			out = append(out, cs.byKey[k])
		}
	}
	return out
}

// Len returns the number of distinct constraints.
func (cs *Constraints) Len() int { return len(cs.order) }

// ApplyTo marks the table's columns with unique and foreign-key
// information from its constraints.
func (cs *Constraints) ApplyTo(t *TableSchema) {
	for _, c := range cs.ForTable(t.Schema, t.ResourceName) {
		switch c.Type {
		case ConstraintUnique:
			if len(c.Columns) == 1 {
				if col, ok := t.Column(c.Columns[0]); ok {
					col.IsUnique = true
				}
			}
		case ConstraintForeign:
			for i, name := range c.Columns {
				col, ok := t.Column(name)
				if !ok {
					continue
				}
				col.IsForeignKey = true
				col.RefTable = c.RefTable
				if c.RefSchema != "" && !strings.EqualFold(c.RefSchema, t.Schema) {
					col.RefTable = c.RefSchema + "." + c.RefTable
				}
				if i < len(c.RefColumns) {
					col.RefField = c.RefColumns[i]
				}
			}
		}
	}
}
