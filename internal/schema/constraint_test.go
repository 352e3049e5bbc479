package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraints_MergeMultiColumn(t *testing.T) {
	cs := NewConstraints()
	cs.Merge(Constraint{Schema: "HR", Table: "EMP", Name: "EMP_UK", Type: ConstraintUnique, Columns: []string{"FIRST"}})
	cs.Merge(Constraint{Schema: "hr", Table: "emp", Name: "emp_uk", Type: ConstraintUnique, Columns: []string{"LAST"}})

	require.Equal(t, 1, cs.Len())
	c, ok := cs.Get(Key("HR", "EMP", "EMP_UK"))
	require.True(t, ok)
	assert.Equal(t, []string{"FIRST", "LAST"}, c.Columns)
}

func TestConstraints_MergeDoesNotAlias(t *testing.T) {
	cols := []string{"A"}
	cs := NewConstraints()
	cs.Merge(Constraint{Schema: "S", Table: "T", Name: "C", Columns: cols})
	cs.Merge(Constraint{Schema: "S", Table: "T", Name: "C", Columns: []string{"B"}})
	assert.Equal(t, []string{"A"}, cols)
}

func TestConstraints_ApplyTo(t *testing.T) {
	tbl := NewTable("HR", "EMP")
	tbl.Columns.Add(&ColumnSchema{Name: "ID"})
	tbl.Columns.Add(&ColumnSchema{Name: "DEPT_ID"})
	tbl.Columns.Add(&ColumnSchema{Name: "EMAIL"})

	cs := NewConstraints()
	cs.Merge(Constraint{Schema: "HR", Table: "EMP", Name: "FK_DEPT", Type: ConstraintForeign,
		Columns: []string{"DEPT_ID"}, RefSchema: "HR", RefTable: "DEPT", RefColumns: []string{"ID"}})
	cs.Merge(Constraint{Schema: "HR", Table: "EMP", Name: "UK_EMAIL", Type: ConstraintUnique, Columns: []string{"EMAIL"}})
	cs.Merge(Constraint{Schema: "HR", Table: "OTHER", Name: "UK_X", Type: ConstraintUnique, Columns: []string{"ID"}})

	cs.ApplyTo(tbl)

	dept, _ := tbl.Column("DEPT_ID")
	assert.True(t, dept.IsForeignKey)
	assert.Equal(t, "DEPT", dept.RefTable)
	assert.Equal(t, "ID", dept.RefField)

	email, _ := tbl.Column("email")
	assert.True(t, email.IsUnique)

	id, _ := tbl.Column("ID")
	assert.False(t, id.IsUnique)
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, ParamInOut, NormalizeDirection("IN/OUT"))
	assert.Equal(t, ParamOut, NormalizeDirection("out"))
	assert.Equal(t, ParamIn, NormalizeDirection("IN"))
	assert.Equal(t, ParamIn, NormalizeDirection(""))
}
