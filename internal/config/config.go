// Package config loads the datri-oracle configuration file.
//
// The format is picked from the file extension: .yaml / .yml or .toml.
// Unknown keys are rejected in both formats so typos fail loudly.
//
//	cfg, err := config.Load("datri-oracle.yaml")
//	if err != nil { ... }
//	drv, err := oradb.New(ctx, cfg.Oracle, log)
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	oradb "github.com/koustreak/datri-oracle/internal/database/oracle"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
	"github.com/koustreak/datri-oracle/internal/oracle"
	"github.com/koustreak/datri-oracle/internal/server"
	"github.com/koustreak/datri-oracle/internal/snapshot"
)

// PasswordEnv overrides oracle.password when set.
const PasswordEnv = "DATRI_ORACLE_PASSWORD"

// Config is the whole configuration file.
type Config struct {
	Oracle   oradb.Options   `yaml:"oracle" toml:"oracle"`
	Engine   oracle.Config   `yaml:"engine" toml:"engine"`
	Log      logger.Config   `yaml:"log" toml:"log"`
	Server   server.Config   `yaml:"server" toml:"server"`
	Snapshot snapshot.Config `yaml:"snapshot" toml:"snapshot"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Oracle: oradb.DefaultOptions(),
		Engine: oracle.DefaultConfig(),
		Log:    *logger.DefaultConfig(),
		Server: server.DefaultConfig(),
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config", err)
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	case ".toml":
		err = decodeTOML(data, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, err
	}

	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		cfg.Oracle.Password = pw
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// an empty document leaves the defaults in place
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return errs.Newf(errs.ErrKindInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// applyDefaults fills values a file may have zeroed out.
func (c *Config) applyDefaults() {
	def := oracle.DefaultConfig()
	if c.Engine.DefaultSchema == "" {
		c.Engine.DefaultSchema = c.Oracle.DefaultSchema()
	}
	if c.Engine.DefaultStringMaxSize <= 0 {
		c.Engine.DefaultStringMaxSize = def.DefaultStringMaxSize
	}
	if c.Engine.MaxRecords <= 0 {
		c.Engine.MaxRecords = def.MaxRecords
	}
	if c.Engine.NestedDepth <= 0 {
		c.Engine.NestedDepth = def.NestedDepth
	}
	if c.Server.Addr == "" {
		c.Server.Addr = server.DefaultConfig().Addr
	}
}

// Validate checks the connection options and, when configured, the
// snapshot store.
func (c *Config) Validate() error {
	if err := c.Oracle.Validate(); err != nil {
		return err
	}
	if c.Snapshot.Endpoint != "" && c.Snapshot.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "snapshot.bucket is required when snapshot.endpoint is set")
	}
	return nil
}
