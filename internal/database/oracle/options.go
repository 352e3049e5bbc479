package oracle

import (
	"fmt"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
)

const (
	defaultPort     = 1521
	defaultProtocol = "TCP"
)

// Options identifies the Oracle instance to connect to. TNS, when set,
// overrides every other addressing field.
type Options struct {
	TNS         string `yaml:"tns" toml:"tns"`
	Host        string `yaml:"host" toml:"host"`
	Port        int    `yaml:"port" toml:"port"`
	Database    string `yaml:"database" toml:"database"` // SID
	ServiceName string `yaml:"service_name" toml:"service_name"`
	Protocol    string `yaml:"protocol" toml:"protocol"` // TCP or TCPS
	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`

	Pool database.Config `yaml:"pool" toml:"pool"`
}

// DefaultOptions returns options with the listener defaults filled in.
func DefaultOptions() Options {
	return Options{
		Port:     defaultPort,
		Protocol: defaultProtocol,
		Pool:     *database.DefaultConfig(),
	}
}

// Validate checks that the options can address an instance.
func (o Options) Validate() error {
	if o.Username == "" {
		return errs.New(errs.ErrKindInvalidInput, "oracle.username is required")
	}
	if o.TNS != "" {
		return nil
	}
	if o.Host == "" {
		return errs.New(errs.ErrKindInvalidInput, "oracle.host is required when not using TNS")
	}
	if o.Database == "" && o.ServiceName == "" {
		return errs.New(errs.ErrKindInvalidInput,
			"if not using TNS, connection information must contain either database (SID) or service_name")
	}
	switch strings.ToUpper(o.protocol()) {
	case "TCP", "TCPS":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "oracle.protocol must be TCP or TCPS, got %q", o.Protocol)
	}
	return nil
}

// ConnectString returns the descriptor passed to the client library.
// A SID wins over a service name when both are present.
func (o Options) ConnectString() string {
	if o.TNS != "" {
		return o.TNS
	}
	port := o.Port
	if port == 0 {
		port = defaultPort
	}
	target := "SERVICE_NAME = " + o.ServiceName
	if o.Database != "" {
		target = "SID = " + o.Database
	}
	return fmt.Sprintf("(DESCRIPTION = (ADDRESS = (PROTOCOL = %s)(HOST = %s)(PORT = %d)) (CONNECT_DATA = (%s)))",
		strings.ToUpper(o.protocol()), o.Host, port, target)
}

// DSN builds the godror logfmt connection string.
func (o Options) DSN() (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	parts := []string{
		"user=" + quote(o.Username),
		"password=" + quote(o.Password),
		"connectString=" + quote(o.ConnectString()),
	}
	if o.Pool.MaxConns > 0 {
		parts = append(parts, fmt.Sprintf("poolMaxSessions=%d", o.Pool.MaxConns))
	}
	if o.Pool.MinConns > 0 {
		parts = append(parts, fmt.Sprintf("poolMinSessions=%d", o.Pool.MinConns))
	}
	return strings.Join(parts, " "), nil
}

// DefaultSchema is the schema unqualified names resolve to: the connecting user.
func (o Options) DefaultSchema() string {
	return strings.ToUpper(o.Username)
}

func (o Options) protocol() string {
	if o.Protocol == "" {
		return defaultProtocol
	}
	return o.Protocol
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
