package dbtest

import (
	"database/sql/driver"
	"io"
)

// Cursor is an in-memory driver.Rows, the shape godror hands back for a
// REF CURSOR OUT bind.
type Cursor struct {
	cols   []string
	data   [][]any
	idx    int
	closed bool
}

// NewCursor builds a cursor over rows.
func NewCursor(columns []string, rows ...[]any) *Cursor {
	return &Cursor{cols: columns, data: rows}
}

func (c *Cursor) Columns() []string { return c.cols }

func (c *Cursor) Close() error {
	c.closed = true
	return nil
}

func (c *Cursor) Next(dest []driver.Value) error {
	if c.closed || c.idx >= len(c.data) {
		return io.EOF
	}
	for i, v := range c.data[c.idx] {
		dest[i] = v
	}
	c.idx++
	return nil
}

// Closed reports whether Close was called.
func (c *Cursor) Closed() bool { return c.closed }
