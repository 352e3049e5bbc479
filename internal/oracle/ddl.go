package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

// Oracle error numbers swallowed during teardown.
const (
	oraSequenceMissing = 2289
	oraTriggerMissing  = 4080
)

// RenameTable returns ALTER TABLE <table> RENAME TO <name>.
func (d *Dialect) RenameTable(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdent(table), quoteIdentPart(name))
}

// AlterColumn returns ALTER TABLE <table> MODIFY <column> <definition>.
func (d *Dialect) AlterColumn(table string, spec schema.ColumnSpec) (string, error) {
	_, def, err := schema.ColumnDefinition(d, spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s", d.QuoteIdent(table), quoteIdentPart(spec.Name), def), nil
}

// DropColumns drops one column with DROP COLUMN, several with DROP (...).
func (d *Dialect) DropColumns(table string, columns ...string) (string, error) {
	switch len(columns) {
	case 0:
		return "", errs.New(errs.ErrKindInvalidInput, "no columns to drop")
	case 1:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdent(table), quoteIdentPart(columns[0])), nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentPart(c)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP (%s)", d.QuoteIdent(table), strings.Join(quoted, ",")), nil
}

// AddColumn returns the statements adding spec to table, including the
// sequence and trigger of an id column.
func (d *Dialect) AddColumn(table string, spec schema.ColumnSpec) ([]string, error) {
	final, def, err := schema.ColumnDefinition(d, spec)
	if err != nil {
		return nil, err
	}
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD (%s %s)", d.QuoteIdent(table), quoteIdentPart(spec.Name), def)}
	if isIDType(spec.Type) && final.IsPrimaryKey {
		stmts = append(stmts, d.PrimaryKeyCommands(table, spec.Name)...)
	}
	return stmts, nil
}

// CreateTable returns CREATE TABLE followed by sequence/trigger pairs for
// id columns and foreign keys for columns with a referenced table.
func (d *Dialect) CreateTable(table string, specs []schema.ColumnSpec) ([]string, error) {
	if len(specs) == 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "table %q has no columns", table)
	}
	defs := make([]string, 0, len(specs))
	var extra []string
	for _, spec := range specs {
		final, def, err := schema.ColumnDefinition(d, spec)
		if err != nil {
			return nil, err
		}
		defs = append(defs, quoteIdentPart(spec.Name)+" "+def)
		if isIDType(spec.Type) && final.IsPrimaryKey {
			extra = append(extra, d.PrimaryKeyCommands(table, spec.Name)...)
		}
		if final.RefTable != "" {
			ref := final.RefField
			if ref == "" {
				ref = "id"
			}
			extra = append(extra, d.AddForeignKey(ConstraintName("fk", table, spec.Name), table,
				[]string{spec.Name}, final.RefTable, []string{ref}, final.RefOnDelete, ""))
		}
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(table), strings.Join(defs, ", "))
	return append([]string{stmt}, extra...), nil
}

func isIDType(t string) bool {
	switch strings.ToLower(t) {
	case schema.TypeID, schema.TypePK:
		return true
	}
	return false
}

// AddForeignKey returns the ALTER TABLE ... ADD CONSTRAINT statement.
// Oracle has no ON UPDATE action, so onUpdate is ignored.
func (d *Dialect) AddForeignKey(name, table string, columns []string, refTable string, refColumns []string, onDelete, onUpdate string) string {
	q := func(cols []string) string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = quoteIdentPart(c)
		}
		return strings.Join(out, ", ")
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteIdent(table), quoteIdentPart(name), q(columns), d.QuoteIdent(refTable), q(refColumns))
	switch strings.ToUpper(strings.TrimSpace(onDelete)) {
	case "CASCADE":
		stmt += " ON DELETE CASCADE"
	case "SET NULL":
		stmt += " ON DELETE SET NULL"
	}
	return stmt
}

// DropIndex returns DROP INDEX <name>.
func (d *Dialect) DropIndex(name string) string {
	return "DROP INDEX " + d.QuoteIdent(name)
}

// RequiresCreateIndex reports whether an index needs its own CREATE INDEX.
// A unique constraint declared with the table creates its index.
func RequiresCreateIndex(unique, onCreateTable bool) bool {
	return !(unique && onCreateTable)
}

// TimestampForSet is the expression used to stamp timestamp_on_create and
// timestamp_on_update columns on write.
func TimestampForSet() database.Raw { return database.Raw("(CURRENT_TIMESTAMP)") }

// PrimaryKeyCommands emulates autoincrement for column with a sequence
// and a BEFORE INSERT trigger that fills the column when it is NULL.
func (d *Dialect) PrimaryKeyCommands(table, column string) []string {
	seq := quoteIdentPart(SequenceName(table))
	trg := quoteIdentPart(TriggerName(table))
	col := quoteIdentPart(column)
	trigger := fmt.Sprintf(`CREATE OR REPLACE TRIGGER %s
BEFORE INSERT ON %s
FOR EACH ROW
BEGIN
  IF :new.%s IS NULL THEN
    SELECT %s.NEXTVAL
    INTO   :new.%s
    FROM   dual;
  END IF;
END;`, trg, d.QuoteIdent(table), col, seq, col)
	return []string{"CREATE SEQUENCE " + seq, trigger}
}

// dropIfExists runs stmt in PL/SQL, ignoring the given (negative) SQLCODE.
func dropIfExists(stmt string, sqlcode int) string {
	return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE '%s';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -%d THEN
      RAISE;
    END IF;
END;`, strings.ReplaceAll(stmt, "'", "''"), sqlcode)
}

// DropTableStatements drops the table and then its autoincrement sequence
// and trigger. The last two succeed when the objects do not exist.
func (d *Dialect) DropTableStatements(table string) []string {
	return []string{
		"DROP TABLE " + d.QuoteIdent(table),
		dropIfExists("DROP SEQUENCE "+quoteIdentPart(SequenceName(table)), oraSequenceMissing),
		dropIfExists("DROP TRIGGER "+quoteIdentPart(TriggerName(table)), oraTriggerMissing),
	}
}

// DropTable executes DropTableStatements.
func (e *Engine) DropTable(ctx context.Context, table string) error {
	for _, stmt := range e.dialect.DropTableStatements(table) {
		if err := e.exec(ctx, "drop_table", stmt); err != nil {
			return errs.Context(err, fmt.Sprintf("dropping table %q", table))
		}
	}
	return nil
}

// ResetSequence recreates t's autoincrement sequence starting at value,
// or at MAX(primary key)+1 when value is nil. Tables without a sequence
// are left alone.
func (e *Engine) ResetSequence(ctx context.Context, t *schema.TableSchema, value *int) error {
	if t.SequenceName == "" {
		return nil
	}
	seq := e.quoteQualified(t.Schema, t.SequenceName)

	start := 1
	if value != nil {
		start = *value
	} else {
		if len(t.PrimaryKey) == 0 {
			return errs.Newf(errs.ErrKindInvalidInput, "table %s has no primary key", t.Name)
		}
		q := fmt.Sprintf(`SELECT MAX(%s) AS "max" FROM %s`, quoteIdentPart(t.PrimaryKey[0]), t.QuotedName)
		recs, err := e.selectRecords(ctx, "reset_sequence", q)
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			if n, ok := recs[0].Int("max"); ok {
				start = n + 1
			}
		}
	}

	if err := e.exec(ctx, "reset_sequence", "DROP SEQUENCE "+seq); err != nil && !errs.HasCode(err, oraSequenceMissing) {
		return err
	}
	return e.exec(ctx, "reset_sequence",
		fmt.Sprintf("CREATE SEQUENCE %s START WITH %d INCREMENT BY 1 NOMAXVALUE NOCACHE", seq, start))
}

const schemaConstraintsSQL = `
SELECT owner, table_name, constraint_name, constraint_type
  FROM all_constraints
 WHERE owner = :1 AND constraint_type IN ('P', 'U', 'R', 'C')
   AND constraint_name NOT LIKE 'BIN$%'
 ORDER BY table_name, constraint_name`

// IntegrityStatements orders constraint toggles so foreign keys are
// disabled first and enabled last.
func (d *Dialect) IntegrityStatements(cs []schema.Constraint, enable bool) []string {
	action := "DISABLE"
	if enable {
		action = "ENABLE"
	}
	var fks, others []string
	for _, c := range cs {
		stmt := fmt.Sprintf("ALTER TABLE %s.%s %s CONSTRAINT %s",
			quoteIdentPart(c.Schema), quoteIdentPart(c.Table), action, quoteIdentPart(c.Name))
		if c.Type == schema.ConstraintForeign {
			fks = append(fks, stmt)
		} else {
			others = append(others, stmt)
		}
	}
	if enable {
		return append(others, fks...)
	}
	return append(fks, others...)
}

// SetIntegrity enables or disables every constraint of schemaName's
// tables (the default schema when empty).
func (e *Engine) SetIntegrity(ctx context.Context, schemaName string, enable bool) error {
	schemaName, _, err := e.resolveSchema(ctx, schemaName)
	if err != nil {
		return err
	}
	recs, err := e.selectRecords(ctx, "integrity", schemaConstraintsSQL, schemaName)
	if err != nil {
		return err
	}
	cs := make([]schema.Constraint, 0, len(recs))
	for _, r := range recs {
		typ := constraintTypes[strings.ToUpper(r.String("constraint_type"))]
		cs = append(cs, schema.Constraint{
			Schema: r.String("owner"),
			Table:  r.String("table_name"),
			Name:   r.String("constraint_name"),
			Type:   typ,
		})
	}
	for _, stmt := range e.dialect.IntegrityStatements(cs, enable) {
		if err := e.exec(ctx, "integrity", stmt); err != nil {
			return err
		}
	}
	return nil
}

// Apply executes generated DDL statements in order, stopping at the
// first failure.
func (e *Engine) Apply(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if err := e.exec(ctx, "ddl", stmt); err != nil {
			return errs.Context(err, fmt.Sprintf("statement %d of %d", i+1, len(stmts)))
		}
	}
	return nil
}
