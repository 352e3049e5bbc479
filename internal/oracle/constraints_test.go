package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/database/dbtest"
	"github.com/koustreak/datri-oracle/internal/schema"
)

var constraintCols = []string{
	"CONSTRAINT_TYPE", "CONSTRAINT_NAME", "TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME",
	"REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
}

func TestListConstraints(t *testing.T) {
	conn := dbtest.New().OnQuery("R_CONSTRAINT_NAME", constraintCols,
		[]any{"U", "ORD_UK", "SALES", "ORDERS", "CUSTOMER_ID", nil, nil, nil},
		[]any{"U", "ORD_UK", "SALES", "ORDERS", "ORDER_NO", nil, nil, nil},
		[]any{"R", "ORD_CUST_FK", "SALES", "ORDERS", "CUSTOMER_ID", "CRM", "CUSTOMERS", "ID"},
		[]any{"P", "ORD_PK", "SALES", "ORDERS", "ID", nil, nil, nil},
	)

	cs, err := newEngine(conn).ListConstraints(t.Context(), "SALES", "CRM")
	require.NoError(t, err)
	require.Equal(t, 3, cs.Len())

	uk, ok := cs.Get(schema.Key("sales", "orders", "ord_uk"))
	require.True(t, ok)
	assert.Equal(t, schema.ConstraintUnique, uk.Type)
	assert.Equal(t, []string{"CUSTOMER_ID", "ORDER_NO"}, uk.Columns)

	fk, _ := cs.Get(schema.Key("SALES", "ORDERS", "ORD_CUST_FK"))
	assert.Equal(t, schema.ConstraintForeign, fk.Type)
	assert.Equal(t, "CRM", fk.RefSchema)
	assert.Equal(t, []string{"ID"}, fk.RefColumns)

	call := conn.Calls()[0]
	assert.Contains(t, call.SQL, "a.owner IN (:1, :2)")
	assert.Equal(t, []any{"SALES", "CRM"}, call.Args)
}

func TestApplyConstraints(t *testing.T) {
	tbl := schema.NewTable("SALES", "ORDERS")
	for _, n := range []string{"ID", "CUSTOMER_ID", "ORDER_NO"} {
		tbl.Columns.Add(&schema.ColumnSchema{Name: n})
	}
	cs := aggregateConstraints(nil)
	cs.Merge(schema.Constraint{Schema: "SALES", Table: "ORDERS", Name: "FK", Type: schema.ConstraintForeign,
		Columns: []string{"CUSTOMER_ID"}, RefSchema: "CRM", RefTable: "CUSTOMERS", RefColumns: []string{"ID"}})
	cs.Merge(schema.Constraint{Schema: "SALES", Table: "ORDERS", Name: "UK", Type: schema.ConstraintUnique,
		Columns: []string{"ORDER_NO"}})

	ApplyConstraints(tbl, cs)

	cust, _ := tbl.Column("CUSTOMER_ID")
	assert.True(t, cust.IsForeignKey)
	assert.Equal(t, "CRM.CUSTOMERS", cust.RefTable)
	assert.Equal(t, "ID", cust.RefField)
	no, _ := tbl.Column("ORDER_NO")
	assert.True(t, no.IsUnique)
}
