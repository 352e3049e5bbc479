package snapshot

// Config addresses the S3-compatible bucket snapshots are written to.
type Config struct {
	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	// Empty disables snapshots.
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" toml:"use_ssl"`

	// Region is used by region-aware backends (AWS S3). Leave empty for MinIO.
	Region string `yaml:"region" toml:"region"`

	Bucket string `yaml:"bucket" toml:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// Enabled reports whether a storage endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }
