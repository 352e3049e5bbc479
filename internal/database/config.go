package database

import "time"

// Config holds pool tuning shared by every driver. The DSN is filled in by
// the driver package from its own connection options.
type Config struct {
	// DSN is the full data source name / connection string.
	DSN string `yaml:"-" toml:"-"`

	// Pool tuning
	MaxConns        int           `yaml:"max_conns" toml:"max_conns"`                 // maximum open connections
	MinConns        int           `yaml:"min_conns" toml:"min_conns"`                 // idle connections kept alive
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" toml:"max_conn_lifetime"` // maximum time a connection may be reused
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" toml:"max_conn_idle_time"`

	// Timeouts
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"` // time limit for the initial ping
	QueryTimeout   time.Duration `yaml:"query_timeout" toml:"query_timeout"`     // per-statement deadline, 0 disables
}

// DefaultConfig returns pool settings sized for catalog-heavy, low-concurrency use.
func DefaultConfig() *Config {
	return &Config{
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryTimeout:    60 * time.Second,
	}
}
