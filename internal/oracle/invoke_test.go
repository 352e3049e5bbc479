package oracle

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/database/dbtest"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

func param(name string, pos int, dir, dbType, typ string) *schema.ParameterSchema {
	return &schema.ParameterSchema{Name: name, Position: pos, ParamType: dir, DbType: dbType, Type: typ}
}

// outArg returns the sql.Out bound under name.
func outArg(t *testing.T, args []any, name string) sql.Out {
	t.Helper()
	for _, a := range args {
		if na, ok := a.(sql.NamedArg); ok && na.Name == name {
			out, ok := na.Value.(sql.Out)
			require.True(t, ok, "%s is not an OUT bind", name)
			return out
		}
	}
	t.Fatalf("no bind named %s", name)
	return sql.Out{}
}

func TestCall_ProcedureWithCursor(t *testing.T) {
	r := &schema.RoutineSchema{
		Kind: schema.KindProcedure, Name: "GET_EMPS", QuotedName: `"HR"."GET_EMPS"`,
		Parameters: []*schema.ParameterSchema{
			param("P_RESULT", 2, schema.ParamOut, "REF CURSOR", schema.TypeRefCursor),
			param("P_DEPT", 1, schema.ParamIn, "NUMBER", schema.TypeInteger),
			param("P_TOTAL", 3, schema.ParamOut, "NUMBER", schema.TypeInteger),
		},
	}
	cursor := dbtest.NewCursor([]string{"ID", "NAME"}, []any{int64(1), "ann"}, []any{int64(2), "bob"})

	var bound []any
	conn := dbtest.New().OnExec("GET_EMPS", func(args []any) error {
		bound = args
		*outArg(t, args, "p2").Dest.(*driver.Rows) = cursor
		total := outArg(t, args, "p3").Dest.(*sql.NullInt64)
		*total = sql.NullInt64{Int64: 2, Valid: true}
		return nil
	})

	res, err := newEngine(conn).Call(t.Context(), r, map[string]any{"p_dept": 10})
	require.NoError(t, err)

	assert.Equal(t, `BEGIN "HR"."GET_EMPS"(:p1, :p2, :p3); END;`, conn.Statements("exec")[0])
	assert.Equal(t, sql.Named("p1", 10), bound[0])
	assert.Equal(t, []map[string]any{{"ID": int64(1), "NAME": "ann"}, {"ID": int64(2), "NAME": "bob"}}, res.Out["P_RESULT"])
	assert.Equal(t, int64(2), res.Out["P_TOTAL"])
	assert.True(t, cursor.Closed())
}

func TestCall_CursorClosedOnFailure(t *testing.T) {
	r := &schema.RoutineSchema{
		Kind: schema.KindProcedure, Name: "P", QuotedName: `"HR"."P"`,
		Parameters: []*schema.ParameterSchema{param("C", 1, schema.ParamOut, "REF CURSOR", schema.TypeRefCursor)},
	}
	cursor := dbtest.NewCursor([]string{"X"})
	conn := dbtest.New().OnExec(`"P"`, func(args []any) error {
		*outArg(t, args, "p1").Dest.(*driver.Rows) = cursor
		return dbtest.OraError(6550, "PLS-00306: wrong number or types of arguments")
	})

	_, err := newEngine(conn).Call(t.Context(), r, nil)
	require.Error(t, err)
	assert.Equal(t, 6550, errs.CodeOf(err))
	assert.Contains(t, err.Error(), `calling procedure "P"`)
	assert.True(t, cursor.Closed())
}

func TestCall_Functions(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		r := &schema.RoutineSchema{
			Kind: schema.KindFunction, Name: "TOTAL", QuotedName: `"HR"."TOTAL"`, ReturnType: schema.TypeDecimal,
			Parameters: []*schema.ParameterSchema{param("P_ID", 1, schema.ParamIn, "NUMBER", schema.TypeInteger)},
		}
		conn := dbtest.New().OnQuery(`"TOTAL"(`, []string{`"HR"."TOTAL"(:P1)`}, []any{12.5})
		res, err := newEngine(conn).Call(t.Context(), r, map[string]any{"P_ID": 7})
		require.NoError(t, err)
		assert.Equal(t, 12.5, res.Value)
		assert.Equal(t, `SELECT "HR"."TOTAL"(:p1) FROM DUAL`, conn.Statements("query")[0])
	})

	t.Run("table", func(t *testing.T) {
		r := &schema.RoutineSchema{
			Kind: schema.KindFunction, Name: "EMP_ROWS", QuotedName: `"HR"."EMP_ROWS"`, ReturnType: schema.TypeTable,
		}
		conn := dbtest.New().OnQuery("TABLE(", []string{"ID"}, []any{int64(1)}, []any{int64(2)})
		res, err := newEngine(conn).Call(t.Context(), r, nil)
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
		assert.Equal(t, `SELECT * FROM TABLE("HR"."EMP_ROWS"())`, conn.Statements("query")[0])
	})

	t.Run("with out parameter", func(t *testing.T) {
		r := &schema.RoutineSchema{
			Kind: schema.KindFunction, Name: "SPLIT", QuotedName: `"HR"."SPLIT"`, ReturnType: schema.TypeString,
			Parameters: []*schema.ParameterSchema{param("P_REST", 1, schema.ParamInOut, "VARCHAR2", schema.TypeString)},
		}
		conn := dbtest.New().OnExec(":ret :=", func(args []any) error {
			rest := outArg(t, args, "p1")
			assert.True(t, rest.In)
			assert.Equal(t, "a,b", rest.Dest.(*sql.NullString).String)
			*rest.Dest.(*sql.NullString) = sql.NullString{String: "b", Valid: true}
			*outArg(t, args, "ret").Dest.(*sql.NullString) = sql.NullString{String: "a", Valid: true}
			return nil
		})
		res, err := newEngine(conn).Call(t.Context(), r, map[string]any{"p_rest": "a,b"})
		require.NoError(t, err)
		assert.Equal(t, "a", res.Value)
		assert.Equal(t, "b", res.Out["P_REST"])
		assert.Equal(t, `BEGIN :ret := "HR"."SPLIT"(:p1); END;`, conn.Statements("exec")[0])
	})
}

func TestCall_NotImplemented(t *testing.T) {
	r := &schema.RoutineSchema{Kind: schema.KindProcedure, Name: "P", QuotedName: `"HR"."P"`}
	conn := dbtest.New().FailOn(`"P"`, errors.New("dpiStmt_execute: feature has not been implemented"))

	res, err := newEngine(conn).Call(t.Context(), r, nil)
	require.NoError(t, err)
	assert.True(t, res.Unsupported)
}

func TestBindParameters(t *testing.T) {
	r := &schema.RoutineSchema{
		Name: "P",
		Parameters: []*schema.ParameterSchema{
			param("A", 1, schema.ParamIn, "NUMBER", schema.TypeInteger),
			{Name: "B", Position: 2, ParamType: schema.ParamIn, DefaultValue: "x"},
			param("FLAG", 3, schema.ParamOut, "NUMBER", schema.TypeBoolean),
			param("NOTE", 4, schema.ParamOut, "VARCHAR2", schema.TypeString),
		},
	}

	_, err := BindParameters(r, map[string]any{"nope": 1})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	binds, err := BindParameters(r, map[string]any{"a": 1})
	require.NoError(t, err)
	require.Len(t, binds, 4)
	assert.Equal(t, sql.Named("p2", "x"), binds[1].Arg(), "declared default fills a missing IN value")
	assert.IsType(t, &sql.NullInt64{}, binds[2].dest)
	assert.IsType(t, &sql.NullString{}, binds[3].dest)

	*binds[2].dest.(*sql.NullInt64) = sql.NullInt64{Int64: 1, Valid: true}
	assert.Equal(t, true, outValue(binds[2]))
	assert.Nil(t, outValue(binds[3]))
}

func TestCursorHandle(t *testing.T) {
	c := dbtest.NewCursor([]string{"B"}, []any{[]byte("raw")})
	h := NewCursorHandle("C", c)

	rows, err := h.Drain()
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), rows[0]["B"])
	assert.True(t, c.Closed())

	_, err = h.Drain()
	assert.True(t, errs.IsInvalidInput(err))

	empty, err := NewCursorHandle("nil", nil).Drain()
	require.NoError(t, err)
	assert.Empty(t, empty)
}
