package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

// maxInListSize is Oracle's limit on expressions in an IN list.
const maxInListSize = 1000

// columnValue is the pseudo-column TABLE() exposes for scalar collections.
const columnValue = "COLUMN_VALUE"

// NestedQuery builds the correlated join that flattens one collection
// column of t for the given parent keys:
//
//	SELECT t1."ID" AS "ID", "ADDR_t"."CITY" AS "ADDR_CITY"
//	  FROM "HR"."EMP" t1, TABLE(t1."ADDR") "ADDR_t"
//	 WHERE t1."ID" IN (:1, :2)
//
// Composite keys are matched with tuple IN lists.
func (e *Engine) NestedQuery(t *schema.TableSchema, col *schema.ColumnSchema, keys [][]any) (string, []any, error) {
	if len(t.PrimaryKey) == 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidInput,
			"collection field %q requires a primary key on %s", col.Name, t.Name)
	}

	alias := quoteIdentPart(col.Name + "_t")
	from := database.Raw(fmt.Sprintf("%s t1, TABLE(t1.%s) %s", t.QuotedName, col.QuotedName, alias))
	b := database.SelectFrom(from, e.dialect)

	pkExprs := make([]string, len(t.PrimaryKey))
	for i, pk := range t.PrimaryKey {
		pkExprs[i] = "t1." + quoteIdentPart(pk)
		b.ColumnsRaw(database.Raw(pkExprs[i] + " AS " + quoteIdentPart(pk)))
	}
	for _, sub := range elementNames(col) {
		b.ColumnsRaw(database.Raw(fmt.Sprintf("%s.%s AS %s", alias, quoteIdentPart(sub), quoteIdentPart(col.Name+"_"+sub))))
	}

	if len(pkExprs) == 1 {
		values := lo.Map(keys, func(k []any, _ int) any { return k[0] })
		b.In(database.Raw(pkExprs[0]), values)
		q, args, err := b.Build()
		return q, args, err
	}

	q, _, err := b.Build()
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return q + " WHERE 1 = 0", nil, nil
	}
	var args []any
	tuples := make([]string, len(keys))
	for i, k := range keys {
		marks := make([]string, len(k))
		for j, v := range k {
			args = append(args, v)
			marks[j] = e.dialect.Placeholder(len(args))
		}
		tuples[i] = "(" + strings.Join(marks, ", ") + ")"
	}
	q += fmt.Sprintf(" WHERE (%s) IN (%s)", strings.Join(pkExprs, ", "), strings.Join(tuples, ", "))
	return q, args, nil
}

// elementNames lists the element columns of a collection column, or
// COLUMN_VALUE for collections of scalars.
func elementNames(col *schema.ColumnSchema) []string {
	if col.Type == schema.TypeArray || len(col.Nested) == 0 {
		return []string{columnValue}
	}
	return lo.Map(col.Nested, func(c *schema.ColumnSchema, _ int) string { return c.Name })
}

// loadCollections fills the collection fields of rows in place. Every row
// receives an array for every field, empty when nothing matched.
func (e *Engine) loadCollections(ctx context.Context, t *schema.TableSchema, rows []map[string]any, fields []*schema.ColumnSchema) error {
	if len(fields) == 0 || len(rows) == 0 {
		return nil
	}

	tupleOf := func(row map[string]any) []any {
		return lo.Map(t.PrimaryKey, func(pk string, _ int) any { return row[pk] })
	}
	keyOf := func(row map[string]any) string { return tupleKey(tupleOf(row)) }

	keys := lo.UniqBy(lo.Map(rows, func(row map[string]any, _ int) []any {
		return tupleOf(row)
	}), tupleKey)

	for _, col := range fields {
		grouped := map[string][]any{}
		for _, chunk := range lo.Chunk(keys, maxInListSize) {
			q, args, err := e.NestedQuery(t, col, chunk)
			if err != nil {
				return err
			}
			e.log.SQL("nested", q, args)
			rs, err := e.conn.Query(ctx, q, args...)
			if err != nil {
				return errs.Context(err, fmt.Sprintf("loading collection %q", col.Name))
			}
			flat, err := database.ScanRows(rs)
			if err != nil {
				return err
			}
			for _, f := range flat {
				k := keyOf(f)
				grouped[k] = append(grouped[k], elementValue(col, f))
			}
		}

		for _, row := range rows {
			items, ok := grouped[keyOf(row)]
			if !ok {
				items = []any{}
			}
			row[col.Name] = items
		}
	}
	return nil
}

// elementValue extracts one collection element from a flattened row,
// reading "<col>_<sub>" and falling back to "<sub>".
func elementValue(col *schema.ColumnSchema, flat map[string]any) any {
	pick := func(sub string) any {
		if v, ok := flat[col.Name+"_"+sub]; ok {
			return v
		}
		return flat[sub]
	}
	if col.Type == schema.TypeArray || len(col.Nested) == 0 {
		return pick(columnValue)
	}
	item := make(map[string]any, len(col.Nested))
	for _, sub := range col.Nested {
		item[sub.Name] = pick(sub.Name)
	}
	return item
}

// tupleKey renders a key tuple as a map key. Parts are NUL-separated so
// ("ab", "c") and ("a", "bc") stay distinct.
func tupleKey(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\x00")
}
