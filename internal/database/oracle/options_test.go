package oracle

import (
	"testing"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{"tns only", func(o *Options) { o.TNS = "ORCL" }, ""},
		{"host and sid", func(o *Options) { o.Host, o.Database = "db", "ORCL" }, ""},
		{"host and service", func(o *Options) { o.Host, o.ServiceName = "db", "PDB1" }, ""},
		{"missing host", func(o *Options) { o.Database = "ORCL" }, "host is required"},
		{"missing target", func(o *Options) { o.Host = "db" }, "database (SID) or service_name"},
		{"bad protocol", func(o *Options) { o.Host, o.Database, o.Protocol = "db", "ORCL", "IPC" }, "TCP or TCPS"},
		{"missing user", func(o *Options) { o.TNS, o.Username = "ORCL", "" }, "username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			o.Username = "hr"
			tt.mutate(&o)

			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions_ConnectString(t *testing.T) {
	o := DefaultOptions()
	o.Host, o.ServiceName = "db.local", "PDB1"
	assert.Equal(t,
		"(DESCRIPTION = (ADDRESS = (PROTOCOL = TCP)(HOST = db.local)(PORT = 1521)) (CONNECT_DATA = (SERVICE_NAME = PDB1)))",
		o.ConnectString())

	o.Database = "ORCL"
	o.Protocol = "tcps"
	o.Port = 2484
	assert.Equal(t,
		"(DESCRIPTION = (ADDRESS = (PROTOCOL = TCPS)(HOST = db.local)(PORT = 2484)) (CONNECT_DATA = (SID = ORCL)))",
		o.ConnectString())

	o.TNS = "(DESCRIPTION=...)"
	assert.Equal(t, "(DESCRIPTION=...)", o.ConnectString())
}

func TestOptions_DSN(t *testing.T) {
	o := DefaultOptions()
	o.TNS = "ORCL"
	o.Username = "hr"
	o.Password = `p"w`
	o.Pool.MaxConns = 4
	o.Pool.MinConns = 0

	dsn, err := o.DSN()
	require.NoError(t, err)
	assert.Equal(t, `user="hr" password="p\"w" connectString="ORCL" poolMaxSessions=4`, dsn)
	assert.Equal(t, "HR", o.DefaultSchema())
}
