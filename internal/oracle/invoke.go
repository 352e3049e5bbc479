package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

// CallResult is the outcome of a routine call.
type CallResult struct {
	// Value is a scalar function's return value.
	Value any `json:"value,omitempty"`
	// Rows holds the rows of a table-returning function.
	Rows []map[string]any `json:"rows,omitempty"`
	// Out maps OUT/INOUT parameter names to their values. REF CURSOR
	// parameters are drained into []map[string]any.
	Out map[string]any `json:"out,omitempty"`
	// Unsupported is set when the database reported the feature as not
	// implemented; the call is then a no-op rather than an error.
	Unsupported bool `json:"unsupported,omitempty"`
}

// Binding is how one parameter is passed to the driver.
type Binding struct {
	Param *schema.ParameterSchema
	Bind  string

	value  any
	dest   any
	cursor *driver.Rows
}

// Arg returns the driver argument for the binding.
func (b *Binding) Arg() any {
	if !b.Param.IsOutput() {
		return sql.Named(b.Bind, b.value)
	}
	if b.cursor != nil {
		return sql.Named(b.Bind, sql.Out{Dest: b.cursor, In: b.Param.ParamType == schema.ParamInOut})
	}
	return sql.Named(b.Bind, sql.Out{Dest: b.dest, In: b.Param.ParamType == schema.ParamInOut})
}

// CursorHandle owns a REF CURSOR returned by a routine call. It is
// drained exactly once and closed by Drain.
type CursorHandle struct {
	name    string
	rows    driver.Rows
	drained bool
}

// NewCursorHandle wraps an opened cursor.
func NewCursorHandle(name string, rows driver.Rows) *CursorHandle {
	return &CursorHandle{name: name, rows: rows}
}

// Drain reads every row of the cursor and closes it. A second call fails.
func (h *CursorHandle) Drain() ([]map[string]any, error) {
	if h.drained {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "cursor %q already drained", h.name)
	}
	h.drained = true
	out := []map[string]any{}
	if h.rows == nil {
		return out, nil
	}
	defer h.rows.Close()

	cols := h.rows.Columns()
	vals := make([]driver.Value, len(cols))
	for {
		err := h.rows.Next(vals)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("reading cursor %q", h.name), err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = append([]byte(nil), b...)
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
}

// Close releases an undrained cursor.
func (h *CursorHandle) Close() {
	if !h.drained && h.rows != nil {
		h.drained = true
		_ = h.rows.Close()
	}
}

// CallRoutine describes the routine and calls it with args keyed by
// parameter name (case-insensitive).
func (e *Engine) CallRoutine(ctx context.Context, kind schema.RoutineKind, name string, args map[string]any) (*CallResult, error) {
	r, err := e.DescribeRoutine(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	return e.Call(ctx, r, args)
}

// Call invokes a described routine.
//
//	procedure:               BEGIN "S"."P"(:p1, :p2); END;
//	table function:          SELECT * FROM TABLE("S"."F"(:p1))
//	scalar function:         SELECT "S"."F"(:p1) FROM DUAL
//	function with OUT args:  BEGIN :ret := "S"."F"(:p1, :p2); END;
func (e *Engine) Call(ctx context.Context, r *schema.RoutineSchema, args map[string]any) (*CallResult, error) {
	binds, err := BindParameters(r, args)
	if err != nil {
		return nil, err
	}
	call := r.QuotedName + "(" + bindList(binds) + ")"

	var res *CallResult
	switch {
	case r.Kind == schema.KindProcedure:
		res, err = e.execCall(ctx, "BEGIN "+call+"; END;", binds, nil)
	case r.ReturnType == schema.TypeTable:
		res, err = e.queryCall(ctx, "SELECT * FROM TABLE("+call+")", binds, true)
	case hasOutput(binds):
		ret := &Binding{
			Param: &schema.ParameterSchema{Name: "ret", ParamType: schema.ParamOut, Type: r.ReturnType},
			Bind:  "ret",
		}
		ret.dest = outDest(ret.Param)
		res, err = e.execCall(ctx, "BEGIN :ret := "+call+"; END;", binds, ret)
	default:
		res, err = e.queryCall(ctx, "SELECT "+call+" FROM DUAL", binds, false)
	}

	if err != nil {
		if isNotImplemented(err) {
			e.log.WarnWith("routine feature not implemented by the database", err,
				map[string]any{"routine": r.InternalName})
			return &CallResult{Unsupported: true}, nil
		}
		return nil, errs.Context(err, fmt.Sprintf("calling %s %q", strings.ToLower(string(r.Kind)), r.Name))
	}
	return res, nil
}

// BindParameters plans the binds for r in parameter order. IN values come
// from args or the declared default; unknown argument names are rejected.
func BindParameters(r *schema.RoutineSchema, args map[string]any) ([]*Binding, error) {
	known := make(map[string]bool, len(r.Parameters))
	for _, p := range r.Parameters {
		known[strings.ToLower(p.Name)] = true
	}
	lookup := make(map[string]any, len(args))
	for k, v := range args {
		if !known[strings.ToLower(k)] {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown parameter %q for %s", k, r.Name)
		}
		lookup[strings.ToLower(k)] = v
	}

	params := append([]*schema.ParameterSchema(nil), r.Parameters...)
	sort.SliceStable(params, func(i, j int) bool { return params[i].Position < params[j].Position })

	binds := make([]*Binding, 0, len(params))
	for i, p := range params {
		b := &Binding{Param: p, Bind: fmt.Sprintf("p%d", i+1)}
		v, ok := lookup[strings.ToLower(p.Name)]
		if !ok {
			v = p.DefaultValue
		}

		switch {
		case !p.IsOutput():
			b.value = v
		case p.IsRefCursor():
			b.cursor = new(driver.Rows)
		default:
			b.dest = outDest(p)
			if p.ParamType == schema.ParamInOut && v != nil {
				if err := b.dest.(sql.Scanner).Scan(v); err != nil {
					return nil, errs.Wrap(errs.ErrKindInvalidInput,
						fmt.Sprintf("invalid value for parameter %q", p.Name), err)
				}
			}
		}
		binds = append(binds, b)
	}
	return binds, nil
}

func (e *Engine) execCall(ctx context.Context, stmt string, binds []*Binding, ret *Binding) (*CallResult, error) {
	all := binds
	if ret != nil {
		all = append([]*Binding{ret}, binds...)
	}
	args := make([]any, len(all))
	for i, b := range all {
		args[i] = b.Arg()
	}

	e.log.SQL("call", stmt, args)
	_, execErr := e.conn.Exec(ctx, stmt, args...)

	// cursors are released even when the call failed
	handles := map[string]*CursorHandle{}
	for _, b := range binds {
		if b.cursor != nil {
			handles[b.Param.Name] = NewCursorHandle(b.Param.Name, *b.cursor)
		}
	}
	if execErr != nil {
		for _, h := range handles {
			h.Close()
		}
		return nil, execErr
	}

	res := &CallResult{Out: map[string]any{}}
	var drainErr error
	for _, b := range binds {
		if !b.Param.IsOutput() {
			continue
		}
		if h, ok := handles[b.Param.Name]; ok {
			rows, err := h.Drain()
			if err != nil && drainErr == nil {
				drainErr = err
			}
			res.Out[b.Param.Name] = rows
			continue
		}
		res.Out[b.Param.Name] = outValue(b)
	}
	if drainErr != nil {
		return nil, drainErr
	}
	if ret != nil {
		res.Value = outValue(ret)
	}
	return res, nil
}

func (e *Engine) queryCall(ctx context.Context, q string, binds []*Binding, table bool) (*CallResult, error) {
	args := make([]any, len(binds))
	for i, b := range binds {
		args[i] = b.Arg()
	}
	e.log.SQL("call", q, args)
	rows, err := e.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	recs, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	if table {
		return &CallResult{Rows: recs}, nil
	}
	res := &CallResult{}
	if len(recs) > 0 {
		for _, v := range recs[0] {
			res.Value = v
		}
	}
	return res, nil
}

func bindList(binds []*Binding) string {
	marks := make([]string, len(binds))
	for i, b := range binds {
		marks[i] = ":" + b.Bind
	}
	return strings.Join(marks, ", ")
}

func hasOutput(binds []*Binding) bool {
	for _, b := range binds {
		if b.Param.IsOutput() {
			return true
		}
	}
	return false
}

// outDest picks a nullable scan destination from the parameter's simple type.
// godror sizes OUT character and number buffers itself (32767 bytes).
func outDest(p *schema.ParameterSchema) any {
	switch p.Type {
	case schema.TypeInteger, schema.TypeBigInt, schema.TypeBoolean, schema.TypeID, schema.TypeReference:
		return new(sql.NullInt64)
	case schema.TypeFloat, schema.TypeDouble, schema.TypeDecimal, schema.TypeMoney:
		return new(sql.NullFloat64)
	case schema.TypeDate, schema.TypeTime, schema.TypeTimeTZ, schema.TypeDatetime, schema.TypeDatetimeTZ,
		schema.TypeTimestamp, schema.TypeTimestampTZ:
		return new(sql.NullTime)
	default:
		return new(sql.NullString)
	}
}

func outValue(b *Binding) any {
	v, err := b.dest.(driver.Valuer).Value()
	if err != nil || v == nil {
		return nil
	}
	if b.Param.Type == schema.TypeBoolean {
		if n, ok := v.(int64); ok {
			return n != 0
		}
	}
	return v
}

func isNotImplemented(err error) bool {
	return errs.IsUnsupported(err) || strings.Contains(strings.ToLower(err.Error()), "has not been implemented")
}
