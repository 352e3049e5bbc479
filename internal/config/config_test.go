package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/errs"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
oracle:
  host: db.local
  service_name: ORCLPDB1
  username: hr
  password: secret
  pool:
    max_conns: 4
    query_timeout: 15s
engine:
  max_records: 50
log:
  level: debug
server:
  addr: ":9090"
snapshot:
  endpoint: localhost:9000
  bucket: schemas
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.local", cfg.Oracle.Host)
	assert.Equal(t, 1521, cfg.Oracle.Port, "default port kept")
	assert.Equal(t, 4, cfg.Oracle.Pool.MaxConns)
	assert.Equal(t, 15*time.Second, cfg.Oracle.Pool.QueryTimeout)
	assert.Equal(t, "HR", cfg.Engine.DefaultSchema)
	assert.Equal(t, 50, cfg.Engine.MaxRecords)
	assert.Equal(t, 255, cfg.Engine.DefaultStringMaxSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "schemas", cfg.Snapshot.Bucket)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "cfg.toml", `
[oracle]
tns = "(DESCRIPTION=(ADDRESS=(HOST=db)(PORT=1521))(CONNECT_DATA=(SID=XE)))"
username = "scott"

[engine]
default_schema = "APP"
nested_depth = 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "APP", cfg.Engine.DefaultSchema)
	assert.Equal(t, 2, cfg.Engine.NestedDepth)
	assert.Equal(t, 1000, cfg.Engine.MaxRecords)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_PasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")
	path := writeFile(t, "cfg.yml", "oracle:\n  tns: XE\n  username: hr\n  password: from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Oracle.Password)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, body, msg string
	}{
		{"unknown yaml key", "c.yaml", "oracle:\n  tns: XE\n  username: hr\n  hots: x\n", "hots"},
		{"unknown toml key", "c.toml", "[oracle]\ntns = \"XE\"\nusername = \"hr\"\nhots = \"x\"\n", "unknown config keys: oracle.hots"},
		{"missing sid and service", "c.yaml", "oracle:\n  host: db\n  username: hr\n", "database (SID) or service_name"},
		{"snapshot without bucket", "c.yaml", "oracle:\n  tns: XE\n  username: hr\nsnapshot:\n  endpoint: s3:9000\n", "snapshot.bucket"},
		{"unsupported format", "c.json", "{}", "unsupported config format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
