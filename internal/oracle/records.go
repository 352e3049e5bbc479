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

// ListOptions controls a record listing.
type ListOptions struct {
	// Fields to return; empty or "*" means every column.
	Fields []string
	// Filter is a pre-composed condition, embedded as is.
	Filter database.Raw
	// Order is "field [asc|desc], ...".
	Order string
	// Group is "field, ...".
	Group string

	Limit  int
	Offset int

	IncludeCount bool
	CountOnly    bool
}

// ListMeta accompanies a listing.
type ListMeta struct {
	Count *int `json:"count,omitempty"`
	// Next is the offset of the following page when the listing was capped.
	Next *int `json:"next,omitempty"`
}

// ListResult is one page of records.
type ListResult struct {
	Records []map[string]any `json:"resource"`
	Meta    ListMeta         `json:"meta"`
}

// Reader lists table records through the engine.
type Reader struct {
	eng *Engine
}

// NewReader returns a reader over eng.
func NewReader(eng *Engine) *Reader { return &Reader{eng: eng} }

// List reads records of table. Limits below 1 or above the configured
// maximum are capped to it; a capped listing reports the next offset.
func (r *Reader) List(ctx context.Context, table string, opts ListOptions) (*ListResult, error) {
	t, err := r.eng.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, clause := range []string{opts.Order, opts.Group} {
		if strings.Contains(clause, ";") {
			return nil, errs.New(errs.ErrKindInvalidInput, "invalid character ';' in order or group clause")
		}
	}

	plain, nested, err := selectFields(t, opts.Fields)
	if err != nil {
		return nil, err
	}

	maxAllowed := r.eng.cfg.MaxRecords
	limit, capped := opts.Limit, false
	if limit < 1 || limit > maxAllowed {
		limit, capped = maxAllowed, true
	}

	base := database.SelectFrom(database.Raw(t.QuotedName), r.eng.dialect).Columns(plain...).WhereRaw(opts.Filter)
	if opts.Group != "" {
		cols, err := parseGroup(t, opts.Group)
		if err != nil {
			return nil, err
		}
		base.GroupBy(cols...)
	}

	res := &ListResult{Records: []map[string]any{}}
	if opts.IncludeCount || opts.CountOnly || capped {
		n, err := r.count(ctx, base)
		if err != nil {
			return nil, err
		}
		if opts.CountOnly {
			res.Meta.Count = &n
			return res, nil
		}
		if opts.IncludeCount {
			res.Meta.Count = &n
		}
		if capped && n-opts.Offset > limit {
			next := opts.Offset + limit
			res.Meta.Next = &next
		}
	}

	if opts.Order != "" {
		if err := applyOrder(base, t, opts.Order); err != nil {
			return nil, err
		}
	}
	base.Limit(limit)
	if opts.Offset > 0 {
		base.Offset(opts.Offset)
	}

	q, args, err := base.Build()
	if err != nil {
		return nil, err
	}
	r.eng.log.SQL("records", q, args)
	rows, err := r.eng.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Context(err, fmt.Sprintf("listing %s", t.Name))
	}
	recs, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		delete(rec, rowNumberAlias)
	}

	if err := r.eng.loadCollections(ctx, t, recs, nested); err != nil {
		return nil, err
	}
	res.Records = recs
	return res, nil
}

func (r *Reader) count(ctx context.Context, base *database.SelectBuilder) (int, error) {
	inner, args, err := base.Build()
	if err != nil {
		return 0, err
	}
	q := `SELECT COUNT(*) AS "count" FROM (` + inner + `)`
	recs, err := r.eng.selectRecords(ctx, "count", q, args...)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	n, _ := recs[0].Int("count")
	return n, nil
}

// selectFields splits the requested fields into plain columns and
// collection columns. Collection columns are loaded separately, so the
// primary key is added to the plain list when they are requested.
func selectFields(t *schema.TableSchema, fields []string) (plain []string, nested []*schema.ColumnSchema, err error) {
	all := len(fields) == 0 || (len(fields) == 1 && strings.TrimSpace(fields[0]) == "*")

	var cols []*schema.ColumnSchema
	if all {
		cols = t.Columns.All()
	} else {
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			c, ok := t.Column(f)
			if !ok {
				return nil, nil, errs.Newf(errs.ErrKindInvalidInput, "invalid field requested: %s", f)
			}
			cols = append(cols, c)
		}
	}

	for _, c := range cols {
		if c.Type == schema.TypeTable || c.Type == schema.TypeArray {
			nested = append(nested, c)
			continue
		}
		plain = append(plain, c.Name)
	}
	if len(nested) > 0 {
		for _, pk := range t.PrimaryKey {
			if !lo.ContainsBy(plain, func(p string) bool { return strings.EqualFold(p, pk) }) {
				plain = append(plain, pk)
			}
		}
	}
	return lo.Uniq(plain), nested, nil
}

// applyOrder parses "field [asc|desc], ..." against t's columns.
func applyOrder(b *database.SelectBuilder, t *schema.TableSchema, order string) error {
	for _, part := range strings.Split(order, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 2 {
			return errs.Newf(errs.ErrKindInvalidInput, "invalid order clause %q", strings.TrimSpace(part))
		}
		c, ok := t.Column(tokens[0])
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "invalid field requested: %s", tokens[0])
		}
		dir := database.Asc
		if len(tokens) == 2 {
			switch strings.ToUpper(tokens[1]) {
			case "ASC":
			case "DESC":
				dir = database.Desc
			default:
				return errs.Newf(errs.ErrKindInvalidInput, "invalid order direction %q", tokens[1])
			}
		}
		b.OrderBy(c.Name, dir)
	}
	return nil
}

func parseGroup(t *schema.TableSchema, group string) ([]string, error) {
	var cols []string
	for _, part := range strings.Split(group, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		c, ok := t.Column(name)
		if !ok {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid field requested: %s", name)
		}
		cols = append(cols, c.Name)
	}
	return cols, nil
}
