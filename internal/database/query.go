package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the extension point the shared builder calls for the parts of
// SQL that differ between engines.
type Dialect interface {
	// Placeholder returns the bind marker for the idx-th argument (1-based).
	Placeholder(idx int) string

	// QuoteIdent quotes a possibly dotted identifier.
	QuoteIdent(name string) string

	// Paginate applies limit/offset to a complete SELECT. Either may be nil.
	Paginate(sql string, limit, offset *int) string
}

// Standard is the ANSI dialect: ? placeholders, LIMIT/OFFSET.
type Standard struct{}

func (Standard) Placeholder(int) string { return "?" }

func (Standard) QuoteIdent(name string) string { return QuoteIdent(name) }

func (Standard) Paginate(sql string, limit, offset *int) string {
	if limit != nil {
		sql += " LIMIT " + strconv.Itoa(*limit)
	}
	if offset != nil {
		sql += " OFFSET " + strconv.Itoa(*offset)
	}
	return sql
}

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":        true,
	"!=":       true,
	"<>":       true,
	"<":        true,
	">":        true,
	"<=":       true,
	">=":       true,
	"LIKE":     true,
	"NOT LIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always passed as args.
// Pagination is delegated to the Dialect.
//
// Usage:
//
//	sql, args, err := Select("EMPLOYEES", dialect).
//	    Columns("ID", "NAME").
//	    Where("ACTIVE", "=", 1).
//	    OrderBy("HIRED", Desc).
//	    Limit(20).
//	    Offset(40).
//	    Build()
type SelectBuilder struct {
	from    string
	dialect Dialect
	columns []string
	where   []whereClause
	groupBy []string
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	left   string
	op     string
	values []any
	in     bool
	raw    bool
}

type orderClause struct {
	expr string
	dir  SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
// A nil dialect means Standard.
func Select(table string, d Dialect) *SelectBuilder {
	if d == nil {
		d = Standard{}
	}
	return &SelectBuilder{from: d.QuoteIdent(table), dialect: d}
}

// SelectFrom starts a builder over an arbitrary FROM source such as a join.
func SelectFrom(from Raw, d Dialect) *SelectBuilder {
	if d == nil {
		d = Standard{}
	}
	return &SelectBuilder{from: string(from), dialect: d}
}

// Columns appends quoted columns to the select list.
// If no columns are added, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	for _, c := range cols {
		b.columns = append(b.columns, b.dialect.QuoteIdent(c))
	}
	return b
}

// ColumnsRaw appends unquoted select expressions.
func (b *SelectBuilder) ColumnsRaw(exprs ...Raw) *SelectBuilder {
	for _, e := range exprs {
		b.columns = append(b.columns, string(e))
	}
	return b
}

// Where adds a WHERE condition on a quoted column. op must be one of the
// allowed comparison operators. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	return b.WhereExpr(Raw(b.dialect.QuoteIdent(column)), op, value)
}

// WhereExpr is Where with an unquoted left-hand side such as t1."ID".
func (b *SelectBuilder) WhereExpr(left Raw, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{left: string(left), op: op, values: []any{value}})
	return b
}

// In adds "left IN (...)". An empty value list matches nothing.
func (b *SelectBuilder) In(left Raw, values []any) *SelectBuilder {
	b.where = append(b.where, whereClause{left: string(left), values: values, in: true})
	return b
}

// WhereRaw adds a pre-composed condition without arguments.
func (b *SelectBuilder) WhereRaw(cond Raw) *SelectBuilder {
	if cond != "" {
		b.where = append(b.where, whereClause{left: string(cond), raw: true})
	}
	return b
}

// GroupBy appends quoted GROUP BY columns.
func (b *SelectBuilder) GroupBy(cols ...string) *SelectBuilder {
	for _, c := range cols {
		b.groupBy = append(b.groupBy, b.dialect.QuoteIdent(c))
	}
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{b.dialect.QuoteIdent(column), dir})
	return b
}

// OrderByExpr appends an ORDER BY on an unquoted expression.
func (b *SelectBuilder) OrderByExpr(expr Raw, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{string(expr), dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		cols = strings.Join(b.columns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)

	var args []any
	argIdx := 1

	// --- WHERE ---
	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			switch {
			case w.raw:
				parts = append(parts, "("+w.left+")")
			case w.in:
				if len(w.values) == 0 {
					parts = append(parts, "1 = 0")
					continue
				}
				marks := make([]string, len(w.values))
				for i, v := range w.values {
					marks[i] = b.dialect.Placeholder(argIdx)
					args = append(args, v)
					argIdx++
				}
				parts = append(parts, fmt.Sprintf("%s IN (%s)", w.left, strings.Join(marks, ", ")))
			default:
				op := strings.ToUpper(strings.TrimSpace(w.op))
				if !validOps[op] {
					return "", nil, errInvalidInput(
						fmt.Sprintf("unsupported WHERE operator: %q", w.op),
					)
				}
				parts = append(parts, fmt.Sprintf("%s %s %s", w.left, op, b.dialect.Placeholder(argIdx)))
				args = append(args, w.values[0])
				argIdx++
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- GROUP BY ---
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = o.expr + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	return b.dialect.Paginate(sb.String(), b.limit, b.offset), args, nil
}

// QuoteIdent wraps a SQL identifier in double-quotes (ANSI standard),
// doubling embedded quotes. Dotted names are quoted per part.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
