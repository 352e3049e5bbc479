// Package dbtest provides an in-memory database.Conn for tests.
//
// Responses are matched by SQL substring (case-insensitive) in registration
// order; the first matching rule wins. Every call is recorded.
//
//	conn := dbtest.New().
//	    OnQuery("ALL_USERS", []string{"USERNAME"}, []any{"HR"}).
//	    FailOn("DROP SEQUENCE", dbtest.OraError(2289, "sequence does not exist"))
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
)

// Call is one recorded statement.
type Call struct {
	Method string // query, exec
	SQL    string
	Args   []any
}

// Result is a canned result set.
type Result struct {
	Columns []string
	Rows    [][]any
}

type rule struct {
	match string
	exec  bool
	fn    func(args []any) (*Result, error)
}

// Conn is a scripted database.Conn.
type Conn struct {
	mu    sync.Mutex
	rules []rule
	calls []Call
}

var _ database.Conn = (*Conn)(nil)

// New returns an empty fake. Unmatched queries return zero rows and
// unmatched statements succeed.
func New() *Conn {
	return &Conn{}
}

// OnQuery answers queries containing match with a fixed result.
func (c *Conn) OnQuery(match string, columns []string, rows ...[]any) *Conn {
	res := &Result{Columns: columns, Rows: rows}
	return c.OnQueryFunc(match, func([]any) (*Result, error) { return res, nil })
}

// OnQueryFunc answers queries containing match with fn.
func (c *Conn) OnQueryFunc(match string, fn func(args []any) (*Result, error)) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule{match: strings.ToUpper(match), fn: fn})
	return c
}

// OnExec runs fn for statements containing match. fn may fill sql.Out
// destinations found in args.
func (c *Conn) OnExec(match string, fn func(args []any) error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule{match: strings.ToUpper(match), exec: true, fn: func(args []any) (*Result, error) {
		return nil, fn(args)
	}})
	return c
}

// FailOn makes both queries and statements containing match fail with err.
func (c *Conn) FailOn(match string, err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	fail := func([]any) (*Result, error) { return nil, err }
	c.rules = append(c.rules,
		rule{match: strings.ToUpper(match), fn: fail},
		rule{match: strings.ToUpper(match), exec: true, fn: fail},
	)
	return c
}

// Calls returns every recorded statement in order.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Statements returns the SQL of recorded calls of the given method
// ("" for all).
func (c *Conn) Statements(method string) []string {
	var out []string
	for _, call := range c.Calls() {
		if method == "" || call.Method == method {
			out = append(out, call.SQL)
		}
	}
	return out
}

func (c *Conn) find(sql string, exec bool) *rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	upper := strings.ToUpper(sql)
	for i := range c.rules {
		r := &c.rules[i]
		if r.exec == exec && strings.Contains(upper, r.match) {
			return r
		}
	}
	return nil
}

func (c *Conn) record(method, sql string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, SQL: sql, Args: args})
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "query cancelled", err)
	}
	c.record("query", sql, args)
	r := c.find(sql, false)
	if r == nil {
		return &Rows{}, nil
	}
	res, err := r.fn(args)
	if err != nil {
		return nil, err
	}
	return &Rows{cols: res.Columns, data: res.Rows, idx: -1}, nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &row{rows: rows.(*Rows)}, nil
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(errs.ErrKindTimeout, "exec cancelled", err)
	}
	c.record("exec", sql, args)
	r := c.find(sql, true)
	if r == nil {
		return 0, nil
	}
	if _, err := r.fn(args); err != nil {
		return 0, err
	}
	return 0, nil
}

// Rows is an in-memory database.Rows. The zero value is an empty result.
type Rows struct {
	cols   []string
	data   [][]any
	idx    int
	closed bool
}

// NewRows builds a result set, handy for faking REF CURSOR output.
func NewRows(columns []string, rows ...[]any) *Rows {
	return &Rows{cols: columns, data: rows, idx: -1}
}

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	if r.data == nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("dbtest: scan without row")
	}
	src := r.data[r.idx]
	if len(dest) != len(src) {
		return fmt.Errorf("dbtest: expected %d destinations, got %d", len(src), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, src[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rows) Columns() ([]string, error) { return r.cols, nil }
func (r *Rows) Close()                     { r.closed = true }
func (r *Rows) Err() error                 { return nil }

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }

type row struct {
	rows *Rows
}

func (r *row) Scan(dest ...any) error {
	defer r.rows.Close()
	if !r.rows.Next() {
		return errs.New(errs.ErrKindNotFound, "no rows in result set")
	}
	return r.rows.Scan(dest...)
}

func assign(dest, v any) error {
	if p, ok := dest.(*any); ok {
		*p = v
		return nil
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("dbtest: destination %T is not a pointer", dest)
	}
	if v == nil {
		dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
		return nil
	}
	sv := reflect.ValueOf(v)
	if !sv.Type().ConvertibleTo(dv.Elem().Type()) {
		return fmt.Errorf("dbtest: cannot assign %T to %T", v, dest)
	}
	dv.Elem().Set(sv.Convert(dv.Elem().Type()))
	return nil
}

// OraError builds the error the Oracle driver would return for code.
func OraError(code int, msg string) error {
	return errs.WrapCode(errs.ErrKindQueryFailed, msg, code, fmt.Errorf("ORA-%05d: %s", code, msg))
}
