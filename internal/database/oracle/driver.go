// Package oracle provides the godror implementation of database.DB.
//
// Usage:
//
//	opts := oracle.DefaultOptions()
//	opts.Host, opts.ServiceName = "db", "ORCLPDB1"
//	opts.Username, opts.Password = "hr", "hr"
//	db, err := oracle.New(ctx, opts, log)
//	if err != nil { ... }
//	defer db.Close()
package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strconv"
	"sync"

	"github.com/godror/godror"
	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
)

// Driver is an Oracle implementation of database.DB backed by database/sql
// and godror. It is safe for concurrent use by multiple goroutines.
//
// A statement that fails because the session was lost is retried once on
// a freshly opened pool; any further failure is returned to the caller.
type Driver struct {
	mu   sync.RWMutex
	db   *sql.DB
	opts Options
	log  *logger.Logger
}

var _ database.DB = (*Driver)(nil)

// New opens a godror pool and pings it before returning.
func New(ctx context.Context, opts Options, log *logger.Logger) (*Driver, error) {
	if log == nil {
		log = logger.L()
	}
	d := &Driver{opts: opts, log: log.Component("driver")}

	db, err := d.open(ctx)
	if err != nil {
		return nil, err
	}
	d.db = db
	return d, nil
}

func (d *Driver) open(ctx context.Context) (*sql.DB, error) {
	dsn, err := d.opts.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	cfg := d.opts.Pool
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, mapError(err, "ping failed")
	}
	return db, nil
}

func (d *Driver) pool() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// reconnect swaps in a new pool unless another goroutine already did.
func (d *Driver) reconnect(ctx context.Context, stale *sql.DB) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != stale {
		return d.db, nil
	}
	db, err := d.open(ctx)
	if err != nil {
		return nil, err
	}
	_ = stale.Close()
	d.db = db
	return db, nil
}

// retry runs fn, and once more on a new pool if the session was lost.
func (d *Driver) retry(ctx context.Context, op string, fn func(*sql.DB) error) error {
	db := d.pool()
	err := fn(db)
	if err == nil || !isLostConnection(err) || ctx.Err() != nil {
		return err
	}

	d.log.WarnWith("lost connection, reconnecting", err, map[string]any{"op": op})
	fresh, rerr := d.reconnect(ctx, db)
	if rerr != nil {
		d.log.ErrorWith("reconnect failed", rerr, map[string]any{"op": op})
		return err
	}
	return fn(fresh)
}

func (d *Driver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := d.opts.Pool.QueryTimeout; t > 0 {
		if _, ok := ctx.Deadline(); !ok {
			return context.WithTimeout(ctx, t)
		}
	}
	return ctx, func() {}
}

// --- database.DB implementation ---

// Ping verifies the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	err := d.retry(ctx, "ping", func(db *sql.DB) error { return db.PingContext(ctx) })
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (d *Driver) Close() {
	_ = d.pool().Close()
}

// Query executes a statement that returns rows. NUMBER values scanned into
// *any come back as int64 or float64 rather than godror.Number.
func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	d.log.SQL("query", query, args)
	ctx, cancel := d.withTimeout(ctx)

	var rows *sql.Rows
	err := d.retry(ctx, "query", func(db *sql.DB) error {
		var err error
		rows, err = db.QueryContext(ctx, query, args...)
		return err
	})
	if err != nil {
		cancel()
		return nil, mapError(err, "query failed")
	}
	return &oraRows{rows: rows, cancel: cancel}, nil
}

// QueryRow executes a statement expected to return at most one row.
func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &oraRow{rows: rows.(*oraRows)}, nil
}

// Exec runs DDL or an anonymous PL/SQL block. REF CURSOR OUT binds
// (sql.Out with a *driver.Rows destination) are wrapped so their values
// are normalised like Query results.
func (d *Driver) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	d.log.SQL("exec", stmt, args)
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var res sql.Result
	err := d.retry(ctx, "exec", func(db *sql.DB) error {
		var err error
		res, err = db.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return 0, mapError(err, "statement failed")
	}

	wrapCursors(args)

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// --- sql.DB type wrappers ---

type oraRows struct {
	rows   *sql.Rows
	cancel context.CancelFunc
}

func (r *oraRows) Next() bool                 { return r.rows.Next() }
func (r *oraRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *oraRows) Err() error                 { return mapError(r.rows.Err(), "row iteration failed") }

func (r *oraRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	for _, d := range dest {
		if p, ok := d.(*any); ok {
			*p = normalize(*p)
		}
	}
	return nil
}

func (r *oraRows) Close() {
	_ = r.rows.Close()
	r.cancel()
}

type oraRow struct {
	rows *oraRows
}

func (r *oraRow) Scan(dest ...any) error {
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return errs.Wrap(errs.ErrKindNotFound, "no rows in result set", sql.ErrNoRows)
	}
	return r.rows.Scan(dest...)
}

// cursorRows normalises values read from a REF CURSOR.
type cursorRows struct {
	driver.Rows
}

func (c *cursorRows) Next(dest []driver.Value) error {
	if err := c.Rows.Next(dest); err != nil {
		return err
	}
	for i, v := range dest {
		dest[i] = normalize(v)
	}
	return nil
}

func wrapCursors(args []any) {
	for _, a := range args {
		named, ok := a.(sql.NamedArg)
		if !ok {
			continue
		}
		out, ok := named.Value.(sql.Out)
		if !ok {
			continue
		}
		if p, ok := out.Dest.(*driver.Rows); ok && *p != nil {
			*p = &cursorRows{Rows: *p}
		}
	}
}

// normalize converts godror.Number into int64 when integral, else float64.
// Values that do not parse stay as their decimal string.
func normalize(v any) any {
	n, ok := v.(godror.Number)
	if !ok {
		return v
	}
	s := string(n)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
