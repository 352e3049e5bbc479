package database

import (
	"context"
	"strings"
)

// ScanRows reads all rows from the result set and returns them as a slice
// of maps keyed by the column name exactly as the driver reports it.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows.
func ScanRows(rows Rows) ([]map[string]any, error) {
	return scan(rows, func(c string) string { return c })
}

// ScanRecords is ScanRows for catalog queries: every column name is folded
// to lower case so callers never deal with the catalog's upper-case keys.
func ScanRecords(rows Rows) ([]Record, error) {
	maps, err := scan(rows, strings.ToLower)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

// SelectRecords runs a catalog query on conn and decodes the result into Records.
func SelectRecords(ctx context.Context, conn Conn, sql string, args ...any) ([]Record, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return ScanRecords(rows)
}

func scan(rows Rows, key func(string) string) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errQuery("failed to read column names", err)
	}
	keys := make([]string, len(columns))
	for i, c := range columns {
		keys[i] = key(c)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, errQuery("failed to scan row", err)
		}

		row := make(map[string]any, len(columns))
		for i, k := range keys {
			row[k] = dest[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errQuery("error during row iteration", err)
	}

	return result, nil
}
