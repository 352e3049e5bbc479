package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

// oraInvalidIdentifier is raised by pre-12c catalogs that lack
// ALL_TAB_COLUMNS.IDENTITY_COLUMN.
const oraInvalidIdentifier = 904

const identityExpr = "c.identity_column"

const columnsSQL = `
SELECT c.column_name, c.data_type, c.data_precision, c.data_scale, c.data_length,
       c.nullable, c.data_default, ` + identityExpr + `,
       (SELECT MAX(k.constraint_type)
          FROM all_cons_columns cc
          JOIN all_constraints k ON k.owner = cc.owner AND k.constraint_name = cc.constraint_name
         WHERE cc.owner = c.owner AND cc.table_name = c.table_name
           AND cc.column_name = c.column_name AND k.constraint_type = 'P') AS pk_flag,
       m.comments,
       t.coll_type AS collection_type,
       n.table_name AS nested_table_name,
       CASE WHEN EXISTS (SELECT 1 FROM all_views v WHERE v.owner = c.owner AND v.view_name = c.table_name)
            THEN 'Y' ELSE 'N' END AS is_view
  FROM all_tab_columns c
  LEFT JOIN all_col_comments m
    ON m.owner = c.owner AND m.table_name = c.table_name AND m.column_name = c.column_name
  LEFT JOIN all_coll_types t
    ON t.owner = c.data_type_owner AND t.type_name = c.data_type
  LEFT JOIN all_nested_tables n
    ON n.owner = c.owner AND n.parent_table_name = c.table_name AND n.parent_table_column = c.column_name
 WHERE c.owner = :1 AND c.table_name = :2
 ORDER BY c.column_id`

const nestedColumnsSQL = `
SELECT c.column_name, c.data_type, c.data_precision, c.data_scale, c.data_length,
       c.nullable, c.data_default,
       t.coll_type AS collection_type,
       n.table_name AS nested_table_name
  FROM all_nested_table_cols c
  LEFT JOIN all_coll_types t
    ON t.owner = c.data_type_owner AND t.type_name = c.data_type
  LEFT JOIN all_nested_tables n
    ON n.owner = c.owner AND n.parent_table_name = c.table_name AND n.parent_table_column = c.column_name
 WHERE c.owner = :1 AND c.table_name = :2 AND c.hidden_column = 'NO'
 ORDER BY c.column_id`

const triggersSQL = `
SELECT trigger_body
  FROM all_triggers
 WHERE table_owner = :1 AND table_name = :2
   AND triggering_event = 'INSERT' AND status = 'ENABLED' AND trigger_type = 'BEFORE EACH ROW'`

// ListSchemas returns the schema (user) names visible to the session.
// SYSTEM, SYS and SYSAUX are hidden unless the session user is SYSTEM.
func (e *Engine) ListSchemas(ctx context.Context) ([]string, error) {
	user, err := e.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	q := `SELECT username FROM all_users`
	if !strings.EqualFold(user, "SYSTEM") {
		q += ` WHERE username NOT IN ('` + strings.Join(systemSchemas, "', '") + `')`
	}
	q += ` ORDER BY username`

	recs, err := e.selectRecords(ctx, "schemas", q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.String("username"))
	}
	return out, nil
}

// ListTables returns the tables of schemaFilter (the default schema when
// empty). Nested-table storage tables are skipped.
func (e *Engine) ListTables(ctx context.Context, schemaFilter string) ([]*schema.TableSchema, error) {
	return e.listObjects(ctx, schemaFilter, false,
		`SELECT owner, table_name AS object_name FROM all_tables
		  WHERE owner = :1 AND nested = 'NO' AND dropped = 'NO'
		  ORDER BY table_name`)
}

// ListViews returns the views of schemaFilter (the default schema when empty).
func (e *Engine) ListViews(ctx context.Context, schemaFilter string) ([]*schema.TableSchema, error) {
	return e.listObjects(ctx, schemaFilter, true,
		`SELECT owner, object_name FROM all_objects
		  WHERE owner = :1 AND object_type = 'VIEW'
		  ORDER BY object_name`)
}

func (e *Engine) listObjects(ctx context.Context, schemaFilter string, views bool, q string) ([]*schema.TableSchema, error) {
	schemaName, def, err := e.resolveSchema(ctx, schemaFilter)
	if err != nil {
		return nil, err
	}
	recs, err := e.selectRecords(ctx, "tables", q, schemaName)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.TableSchema, 0, len(recs))
	for _, r := range recs {
		t := e.newTable(def, r.String("owner"), r.String("object_name"))
		t.IsView = views
		out = append(out, t)
	}
	return out, nil
}

func (e *Engine) newTable(def, schemaName, resource string) *schema.TableSchema {
	t := schema.NewTable(schemaName, resource)
	t.Name = qualify(def, schemaName, resource)
	t.InternalName = schemaName + "." + resource
	t.QuotedName = e.quoteQualified(schemaName, resource)
	return t
}

// DescribeTable loads a table or view with its columns, primary key,
// autoincrement sequence, nested-table element columns and constraints.
// name is "TABLE" or "SCHEMA.TABLE"; when the exact name is not found the
// upper-cased name is tried.
func (e *Engine) DescribeTable(ctx context.Context, name string) (*schema.TableSchema, error) {
	t, err := e.describeTable(ctx, name)
	if err != nil {
		return nil, errs.Context(err, fmt.Sprintf("describing table %q", name))
	}
	return t, nil
}

func (e *Engine) describeTable(ctx context.Context, name string) (*schema.TableSchema, error) {
	schemaName, resource, def, err := e.splitTableName(ctx, name)
	if err != nil {
		return nil, err
	}

	recs, err := e.columnRecords(ctx, schemaName, resource)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 && (resource != strings.ToUpper(resource) || schemaName != strings.ToUpper(schemaName)) {
		schemaName, resource = strings.ToUpper(schemaName), strings.ToUpper(resource)
		if recs, err = e.columnRecords(ctx, schemaName, resource); err != nil {
			return nil, err
		}
	}
	if len(recs) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
	}

	t := e.newTable(def, schemaName, resource)
	t.IsView = recs[0].Bool("is_view")

	nestedTables := map[string]string{}
	byName := map[string]database.Record{}
	for _, r := range recs {
		c := e.buildColumn(r)
		c.IsPrimaryKey = strings.Contains(strings.ToUpper(r.String("pk_flag")), "P")
		if c.IsNestedTable() {
			nestedTables[c.Name] = r.String("nested_table_name")
		}
		byName[c.Name] = r
		t.Columns.Add(c)
	}

	if err := e.detectPrimaryKeys(ctx, t, byName); err != nil {
		return nil, err
	}

	for _, c := range t.Columns.All() {
		storage, ok := nestedTables[c.Name]
		if !ok || storage == "" {
			continue
		}
		nested, err := e.nestedColumns(ctx, schemaName, storage, 1)
		if err != nil {
			return nil, err
		}
		c.Nested = nested
	}

	if !t.IsView {
		cs, err := e.constraints(ctx, []string{schemaName}, resource)
		if err != nil {
			return nil, err
		}
		cs.ApplyTo(t)
	}
	return t, nil
}

// columnRecords runs the column catalog query, falling back to a query
// without IDENTITY_COLUMN on databases older than 12c.
func (e *Engine) columnRecords(ctx context.Context, schemaName, table string) ([]database.Record, error) {
	recs, err := e.selectRecords(ctx, "columns", columnsSQL, schemaName, table)
	if err != nil && errs.HasCode(err, oraInvalidIdentifier) {
		e.log.Debug("identity_column not available, using legacy column query")
		legacy := strings.Replace(columnsSQL, identityExpr, "NULL AS identity_column", 1)
		return e.selectRecords(ctx, "columns", legacy, schemaName, table)
	}
	return recs, err
}

// detectPrimaryKeys records the primary key and runs autoincrement
// detection on each key column. Trigger bodies are loaded at most once.
func (e *Engine) detectPrimaryKeys(ctx context.Context, t *schema.TableSchema, recs map[string]database.Record) error {
	var (
		bodies []string
		loaded bool
	)
	triggers := func() ([]string, error) {
		if loaded {
			return bodies, nil
		}
		rows, err := e.selectRecords(ctx, "triggers", triggersSQL, t.Schema, t.ResourceName)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			bodies = append(bodies, r.String("trigger_body"))
		}
		loaded = true
		return bodies, nil
	}

	for _, c := range t.Columns.All() {
		if !c.IsPrimaryKey {
			continue
		}
		t.AddPrimaryKey(c.Name)
		if t.IsView {
			continue
		}
		ai, err := DetectAutoIncrement(c.Name, recs[c.Name], triggers)
		if err != nil {
			return err
		}
		if !ai.Enabled {
			continue
		}
		c.AutoIncrement = true
		if ai.Sequence != "" {
			t.SequenceName = ai.Sequence
		}
		if c.Type == schema.TypeInteger {
			c.Type = schema.TypeID
		}
	}
	return nil
}

func (e *Engine) nestedColumns(ctx context.Context, owner, storage string, depth int) ([]*schema.ColumnSchema, error) {
	recs, err := e.selectRecords(ctx, "nested_columns", nestedColumnsSQL, owner, storage)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.ColumnSchema, 0, len(recs))
	for _, r := range recs {
		c := e.buildColumn(r)
		if sub := r.String("nested_table_name"); c.IsNestedTable() && sub != "" && depth < e.cfg.NestedDepth {
			if c.Nested, err = e.nestedColumns(ctx, owner, sub, depth+1); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// buildColumn turns one catalog row into a ColumnSchema.
func (e *Engine) buildColumn(r database.Record) *schema.ColumnSchema {
	name := r.String("column_name")
	dbType := r.String("data_type")
	c := &schema.ColumnSchema{
		Name:       name,
		QuotedName: quoteIdentPart(name),
		DbType:     dbType,
		AllowNull:  strings.EqualFold(r.String("nullable"), "Y"),
	}

	rawPrecision, rawScale := r.IntPtr("data_precision"), r.IntPtr("data_scale")
	length, _ := r.Int("data_length")
	c.NormalizeSize(deref(rawPrecision), deref(rawScale), length)
	schema.ExtractLimit(c, dbType)

	c.Type = extractType(dbType, rawPrecision, rawScale)
	c.FixedLength = schema.ExtractFixedLength(dbType)
	c.SupportsMultibyte = schema.ExtractMultiByteSupport(dbType)

	switch strings.ToUpper(r.String("collection_type")) {
	case "TABLE":
		c.Type = schema.TypeTable
	case "VARYING ARRAY":
		c.Type = schema.TypeArray
	}

	c.DefaultValue = extractDefault(c.Type, r.String("data_default"))
	c.Comment = r.String("comments")
	return c
}

// extractType classifies a native type. TIMESTAMP WITH TIME ZONE and
// WITH LOCAL TIME ZONE both classify as timestamp_tz.
func extractType(dbType string, precision, scale *int) string {
	t := schema.ExtractSimpleType(dbType, precision, scale)
	upper := strings.ToUpper(dbType)
	if (t == schema.TypeTimestamp || t == schema.TypeDatetime) &&
		(strings.Contains(upper, "WITH TIME ZONE") || strings.Contains(upper, "WITH LOCAL TIME ZONE")) {
		return schema.TypeTimestampTZ
	}
	return t
}

// extractDefault drops function defaults such as SYSTIMESTAMP.
func extractDefault(simpleType, raw string) any {
	if strings.Contains(strings.ToLower(raw), "timestamp") {
		return nil
	}
	return schema.ParseDefault(simpleType, raw)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
