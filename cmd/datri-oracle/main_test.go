package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

func TestParseColumn(t *testing.T) {
	spec, err := parseColumn("NAME:string:60:null:unique")
	require.NoError(t, err)
	assert.Equal(t, "NAME", spec.Name)
	assert.Equal(t, "string", spec.Type)
	assert.Equal(t, 60, *spec.Length)
	assert.True(t, spec.AllowNull)
	assert.True(t, spec.IsUnique)

	spec, err = parseColumn("DEPT_ID:reference:ref=DEPT.ID")
	require.NoError(t, err)
	assert.Equal(t, "DEPT", spec.RefTable)
	assert.Equal(t, "ID", spec.RefField)

	for _, bad := range []string{"NAME", ":string", "N:string:wide", "N:string:0"} {
		_, err := parseColumn(bad)
		assert.True(t, errs.IsInvalidInput(err), bad)
	}
}

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"p_id=7", "p_pct=2.5", "p_name=ann=b", "p_note=NULL"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"p_id": int64(7), "p_pct": 2.5, "p_name": "ann=b", "p_note": nil}, got)

	_, err = parseArgs([]string{"novalue"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseKind(t *testing.T) {
	k, err := parseKind("Function")
	require.NoError(t, err)
	assert.Equal(t, schema.KindFunction, k)
	_, err = parseKind("trigger")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errs.New(errs.ErrKindInvalidInput, "x")))
	assert.Equal(t, 3, exitCode(errs.New(errs.ErrKindNotFound, "x")))
	assert.Equal(t, 1, exitCode(errs.New(errs.ErrKindQueryFailed, "x")))
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"schemas", "tables", "describe", "routines", "query", "call", "ddl", "serve", "snapshot"} {
		assert.True(t, names[want], want)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ddl", "--help"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "create-table")
	assert.Contains(t, out.String(), "reset-sequence")
}
