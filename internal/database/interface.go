package database

import "context"

// Conn is the SQL-executing connection the schema engine borrows per call.
// The engine never pools or closes it.
type Conn interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec runs a statement (DDL or an anonymous PL/SQL block) and returns
	// the number of affected rows. OUT binds are passed as sql.Named/sql.Out args.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// DB is a Conn that owns its pool.
type DB interface {
	Conn

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Raw is a SQL fragment embedded without quoting or binding,
// e.g. CURRENT_TIMESTAMP or a TABLE(...) join source.
type Raw string

func (r Raw) String() string { return string(r) }
