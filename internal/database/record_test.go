package database_test

import (
	"context"
	"testing"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_LowercasesKeys(t *testing.T) {
	conn := dbtest.New().OnQuery("ALL_TAB_COLUMNS",
		[]string{"COLUMN_NAME", "DATA_PRECISION", "NULLABLE"},
		[]any{"ID", int64(10), "N"},
		[]any{"NAME", nil, "Y"},
	)

	recs, err := database.SelectRecords(context.Background(), conn, "SELECT * FROM ALL_TAB_COLUMNS")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "ID", recs[0].String("column_name"))
	n, ok := recs[0].Int("data_precision")
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	assert.Nil(t, recs[1].IntPtr("data_precision"))
	assert.True(t, recs[1].Bool("nullable"))
	assert.False(t, recs[0].Bool("nullable"))
	assert.False(t, recs[1].Has("data_precision"))
}

func TestScanRows_KeepsCase(t *testing.T) {
	rows := dbtest.NewRows([]string{"ID", "displayName"}, []any{int64(1), "x"})

	out, err := database.ScanRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"ID": int64(1), "displayName": "x"}}, out)
	assert.True(t, rows.Closed())
}

func TestRecord_Int(t *testing.T) {
	r := database.Record{"a": "42", "b": 3.9, "c": "abc", "d": []byte("7")}

	a, ok := r.Int("a")
	assert.True(t, ok)
	assert.Equal(t, 42, a)

	b, _ := r.Int("b")
	assert.Equal(t, 3, b)

	_, ok = r.Int("c")
	assert.False(t, ok)

	d, _ := r.Int("d")
	assert.Equal(t, 7, d)
	assert.Equal(t, "7", r.String("d"))
}
