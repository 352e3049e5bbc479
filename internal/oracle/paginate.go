package oracle

import (
	"fmt"
	"strconv"
)

// rowNumberAlias is the column the ROWNUM wrappers add to every row.
// Record readers strip it from results.
const rowNumberAlias = "rn"

// Paginate wraps a complete SELECT in ROWNUM filters. Oracle versions
// before 12c have no LIMIT/OFFSET, so:
//
//	limit=1, no offset:  SELECT * FROM (q) WHERE ROWNUM = 1
//	limit and offset:    rows numbered up to offset+limit, filtered from offset+1
//	limit only:          one numbered wrap stopping at ROWNUM <= limit
//	offset only:         one numbered wrap, outer filter rn >= offset+1
//
// With neither limit nor offset the query is returned unchanged.
func (d *Dialect) Paginate(sql string, limit, offset *int) string {
	if limit == nil && offset == nil {
		return sql
	}

	if limit != nil && *limit == 1 && offset == nil {
		return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM %s", sql, rowConstraint(limit, offset))
	}

	if limit != nil && offset != nil {
		start := *offset + 1
		bound := *offset + *limit + 1
		return fmt.Sprintf(
			`SELECT t2.* FROM (SELECT ROWNUM AS "%s", t1.* FROM (%s) t1 WHERE ROWNUM < %d) t2 WHERE t2."%s" >= %d`,
			rowNumberAlias, sql, bound, rowNumberAlias, start)
	}

	if limit != nil && *limit > 0 {
		return fmt.Sprintf(`SELECT ROWNUM AS "%s", t1.* FROM (%s) t1 WHERE ROWNUM %s`,
			rowNumberAlias, sql, rowConstraint(limit, offset))
	}

	return fmt.Sprintf(
		`SELECT t2.* FROM (SELECT ROWNUM AS "%s", t1.* FROM (%s) t1) t2 WHERE t2."%s" %s`,
		rowNumberAlias, sql, rowNumberAlias, rowConstraint(limit, offset))
}

// rowConstraint is the comparison applied to the row number.
func rowConstraint(limit, offset *int) string {
	start := 1
	if offset != nil {
		start = *offset + 1
	}
	switch {
	case limit != nil && *limit == 1 && start == 1:
		return "= 1"
	case limit != nil && *limit > 0 && start == 1:
		return "<= " + strconv.Itoa(*limit)
	case limit != nil && *limit > 0:
		return "BETWEEN " + strconv.Itoa(start) + " AND " + strconv.Itoa(start+*limit-1)
	default:
		return ">= " + strconv.Itoa(start)
	}
}
