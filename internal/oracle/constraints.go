package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/schema"
)

const constraintsSQL = `
SELECT a.constraint_type, a.constraint_name, a.owner AS table_schema, a.table_name,
       b.column_name,
       c.owner AS referenced_table_schema, c.table_name AS referenced_table_name,
       d.column_name AS referenced_column_name
  FROM all_constraints a
  LEFT JOIN all_cons_columns b
    ON b.owner = a.owner AND b.constraint_name = a.constraint_name
  LEFT JOIN all_constraints c
    ON c.owner = a.r_owner AND c.constraint_name = a.r_constraint_name
  LEFT JOIN all_cons_columns d
    ON d.owner = c.owner AND d.constraint_name = c.constraint_name AND d.position = b.position
 WHERE a.owner IN (%s)%s
 ORDER BY a.owner, a.table_name, a.constraint_name, b.position`

var constraintTypes = map[string]string{
	"P": schema.ConstraintPrimary,
	"R": schema.ConstraintForeign,
	"U": schema.ConstraintUnique,
	"C": schema.ConstraintCheck,
}

// ListConstraints returns the constraints of every table in schemas,
// multi-column constraints merged into one record each.
func (e *Engine) ListConstraints(ctx context.Context, schemas ...string) (*schema.Constraints, error) {
	if len(schemas) == 0 {
		def, err := e.DefaultSchema(ctx)
		if err != nil {
			return nil, err
		}
		schemas = []string{def}
	}
	return e.constraints(ctx, schemas, "")
}

func (e *Engine) constraints(ctx context.Context, schemas []string, table string) (*schema.Constraints, error) {
	marks := make([]string, len(schemas))
	args := make([]any, 0, len(schemas)+1)
	for i, s := range schemas {
		marks[i] = e.dialect.Placeholder(i + 1)
		args = append(args, s)
	}
	tableCond := ""
	if table != "" {
		tableCond = " AND a.table_name = " + e.dialect.Placeholder(len(args)+1)
		args = append(args, table)
	}

	q := fmt.Sprintf(constraintsSQL, strings.Join(marks, ", "), tableCond)
	recs, err := e.selectRecords(ctx, "constraints", q, args...)
	if err != nil {
		return nil, err
	}
	return aggregateConstraints(recs), nil
}

// aggregateConstraints folds catalog rows into constraint records, keeping
// the catalog's column order.
func aggregateConstraints(recs []database.Record) *schema.Constraints {
	cs := schema.NewConstraints()
	for _, r := range recs {
		raw := strings.ToUpper(r.String("constraint_type"))
		typ, ok := constraintTypes[raw]
		if !ok {
			typ = strings.ToLower(raw)
		}
		c := schema.Constraint{
			Schema:    r.String("table_schema"),
			Table:     r.String("table_name"),
			Name:      r.String("constraint_name"),
			Type:      typ,
			RefSchema: r.String("referenced_table_schema"),
			RefTable:  r.String("referenced_table_name"),
		}
		if col, ok := r.NullString("column_name"); ok {
			c.Columns = []string{col}
		}
		if ref, ok := r.NullString("referenced_column_name"); ok {
			c.RefColumns = []string{ref}
		}
		cs.Merge(c)
	}
	return cs
}

// ApplyConstraints marks t's columns with the unique and foreign-key
// information of cs.
func ApplyConstraints(t *schema.TableSchema, cs *schema.Constraints) {
	cs.ApplyTo(t)
}
