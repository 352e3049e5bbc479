package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/database/dbtest"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
	"github.com/koustreak/datri-oracle/internal/oracle"
)

var columnCols = []string{
	"COLUMN_NAME", "DATA_TYPE", "DATA_PRECISION", "DATA_SCALE", "DATA_LENGTH",
	"NULLABLE", "DATA_DEFAULT", "IDENTITY_COLUMN", "PK_FLAG", "COMMENTS", "COLLECTION_TYPE",
	"NESTED_TABLE_NAME", "IS_VIEW",
}

func newTestServer(conn *dbtest.Conn) *Server {
	cfg := oracle.DefaultConfig()
	cfg.DefaultSchema = "HR"
	return New(DefaultConfig(), oracle.New(conn, cfg, logger.Nop()), logger.Nop())
}

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(dbtest.New().OnQuery("SELECT USER AS", []string{"USER"}, []any{"HR"}))
	code, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	down := newTestServer(dbtest.New().FailOn("SELECT USER AS",
		errs.WrapCode(errs.ErrKindConnectionFailed, "lost", 3113, errors.New("ORA-03113"))))
	code, body = get(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection_failed", body["error"].(map[string]any)["kind"])
	assert.Equal(t, 3113.0, body["error"].(map[string]any)["code"])
}

func TestRequestLog(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})
	conn := dbtest.New().OnQuery("SELECT USER AS", []string{"USER"}, []any{"HR"})
	s := New(DefaultConfig(), oracle.New(conn, oracle.DefaultConfig(), logger.Nop()), log)

	get(t, s, "/healthz")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "request", entry["message"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.Equal(t, 200.0, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Contains(t, entry, "elapsed")
}

func TestListTables(t *testing.T) {
	conn := dbtest.New().OnQuery("ALL_TABLES", []string{"OWNER", "OBJECT_NAME"}, []any{"SALES", "ORDERS"})
	code, body := get(t, newTestServer(conn), "/tables?schema=SALES")
	require.Equal(t, http.StatusOK, code)

	list := body["resource"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "SALES.ORDERS", list[0].(map[string]any)["name"])
	assert.Equal(t, []any{"SALES"}, conn.Calls()[0].Args)
}

func TestDescribeTable(t *testing.T) {
	conn := dbtest.New().OnQuery("ALL_TAB_COLUMNS", columnCols,
		[]any{"ID", "NUMBER", int64(10), int64(0), int64(22), "N", nil, "YES", "P", nil, nil, nil, "N"},
	)
	code, body := get(t, newTestServer(conn), "/tables/EMP")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EMP", body["name"])
	assert.Equal(t, []any{"ID"}, body["primary_key"])

	code, body = get(t, newTestServer(dbtest.New()), "/tables/NOPE")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"].(map[string]any)["kind"])
}

func TestListRecords(t *testing.T) {
	conn := dbtest.New().
		OnQuery("ALL_TAB_COLUMNS", columnCols,
			[]any{"ID", "NUMBER", int64(10), int64(0), int64(22), "N", nil, "YES", "P", nil, nil, nil, "N"},
		).
		OnQuery(`COUNT(*) AS "count"`, []string{"count"}, []any{int64(1)}).
		OnQuery(`ROWNUM AS "rn"`, []string{"rn", "ID"}, []any{int64(1), int64(7)})

	code, body := get(t, newTestServer(conn), "/tables/EMP/records?fields=id&limit=5&include_count=true")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{map[string]any{"ID": 7.0}}, body["resource"])
	assert.Equal(t, 1.0, body["meta"].(map[string]any)["count"])

	code, _ = get(t, newTestServer(conn), "/tables/EMP/records?limit=-1")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, newTestServer(conn), "/tables/EMP/records?fields=salary")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRoutines(t *testing.T) {
	conn := dbtest.New().
		OnQuery("OBJECT_TYPE = :2", []string{"OWNER", "OBJECT_NAME"}, []any{"HR", "TOTAL"}).
		OnQuery("OBJECT_TYPE = 'PACKAGE'", []string{"OWNER", "PACKAGE_NAME", "PROCEDURE_NAME"})

	code, body := get(t, newTestServer(conn), "/routines/functions")
	require.Equal(t, http.StatusOK, code)
	list := body["resource"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "FUNCTION", list[0].(map[string]any)["kind"])

	code, body = get(t, newTestServer(conn), "/routines/function/TOTAL")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "TOTAL", body["name"])

	code, _ = get(t, newTestServer(conn), "/routines/triggers")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind errs.ErrKind
		want int
	}{
		{errs.ErrKindNotFound, http.StatusNotFound},
		{errs.ErrKindInvalidInput, http.StatusBadRequest},
		{errs.ErrKindPermissionDenied, http.StatusForbidden},
		{errs.ErrKindTimeout, http.StatusGatewayTimeout},
		{errs.ErrKindUnsupported, http.StatusNotImplemented},
		{errs.ErrKindQueryFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(errs.New(tt.kind, "x")), tt.kind.String())
	}
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("plain")))
}
