// Package oracle is the Oracle schema engine: catalog introspection,
// autoincrement detection, type translation, ROWNUM pagination,
// nested-collection retrieval, routine invocation and DDL generation.
//
// The engine borrows a database.Conn per call and keeps no state between
// calls; every schema object it returns is built fresh.
//
//	eng := oracle.New(conn, oracle.DefaultConfig(), log)
//	tbl, err := eng.DescribeTable(ctx, "HR.EMPLOYEES")
package oracle

import (
	"context"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
)

// Config tunes the engine.
type Config struct {
	// DefaultSchema is the schema unqualified names resolve to. Empty means
	// the connecting user's schema.
	DefaultSchema string `yaml:"default_schema" toml:"default_schema"`

	// DefaultStringMaxSize is the VARCHAR2 length for string columns
	// requested without one.
	DefaultStringMaxSize int `yaml:"default_string_max_size" toml:"default_string_max_size"`

	// MaxRecords caps the rows a single List call returns.
	MaxRecords int `yaml:"max_records" toml:"max_records"`

	// NestedDepth bounds the recursion into nested-table element columns.
	NestedDepth int `yaml:"nested_depth" toml:"nested_depth"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStringMaxSize: DefaultStringMaxSize,
		MaxRecords:           1000,
		NestedDepth:          4,
	}
}

// systemSchemas are hidden from schema listings unless the session user
// is SYSTEM.
var systemSchemas = []string{"SYSTEM", "SYS", "SYSAUX"}

// Engine runs catalog queries and schema operations over a borrowed
// connection. It is safe for concurrent use when conn is.
type Engine struct {
	conn    database.Conn
	cfg     Config
	dialect *Dialect
	log     *logger.Logger
}

// New returns an engine over conn. Zero config values fall back to
// DefaultConfig.
func New(conn database.Conn, cfg Config, log *logger.Logger) *Engine {
	def := DefaultConfig()
	if cfg.DefaultStringMaxSize <= 0 {
		cfg.DefaultStringMaxSize = def.DefaultStringMaxSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = def.MaxRecords
	}
	if cfg.NestedDepth <= 0 {
		cfg.NestedDepth = def.NestedDepth
	}
	if log == nil {
		log = logger.L()
	}
	return &Engine{
		conn:    conn,
		cfg:     cfg,
		dialect: &Dialect{StringMaxSize: cfg.DefaultStringMaxSize},
		log:     log.Component("oracle"),
	}
}

// Dialect returns the engine's SQL dialect.
func (e *Engine) Dialect() *Dialect { return e.dialect }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) selectRecords(ctx context.Context, op, sql string, args ...any) ([]database.Record, error) {
	e.log.SQL(op, sql, args)
	return database.SelectRecords(ctx, e.conn, sql, args...)
}

func (e *Engine) exec(ctx context.Context, op, sql string, args ...any) error {
	e.log.SQL(op, sql, args)
	_, err := e.conn.Exec(ctx, sql, args...)
	return err
}

// CurrentUser returns the session user.
func (e *Engine) CurrentUser(ctx context.Context) (string, error) {
	recs, err := e.selectRecords(ctx, "current_user", `SELECT USER AS "USER" FROM DUAL`)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", errs.New(errs.ErrKindNotFound, "session user not reported")
	}
	return recs[0].String("user"), nil
}

// DefaultSchema returns the configured default schema, or the session
// user when none is configured.
func (e *Engine) DefaultSchema(ctx context.Context) (string, error) {
	if e.cfg.DefaultSchema != "" {
		return e.cfg.DefaultSchema, nil
	}
	return e.CurrentUser(ctx)
}

// resolveSchema returns filter, or the default schema when filter is empty.
func (e *Engine) resolveSchema(ctx context.Context, filter string) (schemaName, def string, err error) {
	def, err = e.DefaultSchema(ctx)
	if err != nil {
		return "", "", err
	}
	if filter == "" {
		return def, def, nil
	}
	return filter, def, nil
}

// splitTableName splits "SCHEMA.TABLE"; a bare name resolves to the
// default schema.
func (e *Engine) splitTableName(ctx context.Context, name string) (schemaName, resource, def string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", "", errs.New(errs.ErrKindInvalidInput, "table name is required")
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		def, err = e.DefaultSchema(ctx)
		return name[:i], name[i+1:], def, err
	}
	schemaName, def, err = e.resolveSchema(ctx, "")
	return schemaName, name, def, err
}

// qualify applies the naming policy: a name is schema-qualified only when
// its schema differs from the default schema.
func qualify(def, schemaName, resource string) string {
	if strings.EqualFold(def, schemaName) {
		return resource
	}
	return schemaName + "." + resource
}

// quoteQualified quotes schema and resource as single identifiers.
func (e *Engine) quoteQualified(schemaName, resource string) string {
	return e.dialect.QuoteIdent(schemaName) + "." + quoteIdentPart(resource)
}

func quoteIdentPart(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
