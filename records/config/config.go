// Package config loads the named database connections and the blob storage settings from YAML,
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported connection drivers.
const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Environment variables that override file values.
const (
	EnvDSNPrefix     = "RECORDS_DSN_"
	EnvBlobBucket    = "RECORDS_BLOB_BUCKET"
	EnvBlobRegion    = "RECORDS_BLOB_REGION"
	EnvBlobEndpoint  = "RECORDS_BLOB_ENDPOINT"
	EnvBlobPathStyle = "RECORDS_BLOB_PATH_STYLE"
)

const (
	defaultMaxOpenConns    = 50
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = time.Hour
)

var (
	// ErrNoConnections is returned when a configuration declares no connection.
	ErrNoConnections = errors.New("no connections configured")

	// ErrUnknownDriver is returned when a connection names a driver other than pgx, postgres or sqlite.
	ErrUnknownDriver = errors.New("unknown driver")

	// ErrEmptyDSN is returned when a connection has no DSN after env overrides.
	ErrEmptyDSN = errors.New("empty dsn")

	// ErrReadingConfigFailed is returned, joined with the cause, when the file cannot be read or parsed.
	ErrReadingConfigFailed = errors.New("reading config failed")
)

// Connection describes one named database connection.
type Connection struct {
	Name            string        `yaml:"-"`
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	ReplicaDSN      string        `yaml:"replica_dsn"`
	Dialect         string        `yaml:"dialect"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Blob describes the object storage used for uploads.
type Blob struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
	PathStyle     bool   `yaml:"path_style"`
}

// Config is the root of the YAML document.
type Config struct {
	Connections map[string]Connection `yaml:"connections"`
	Blob        Blob                  `yaml:"blob"`
}

// Load reads the YAML file at path, applies env overrides and defaults, and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrReadingConfigFailed, err)
	}

	return Parse(raw)
}

// Parse is Load for an in-memory document.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Join(ErrReadingConfigFailed, err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Connection returns the named connection.
func (c Config) Connection(name string) (Connection, bool) {
	conn, ok := c.Connections[name]
	return conn, ok
}

// ConnectionNames returns the connection names in sorted order.
func (c Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Validate checks that at least one connection exists and that every connection is usable.
func (c Config) Validate() error {
	if len(c.Connections) == 0 {
		return ErrNoConnections
	}

	for _, name := range c.ConnectionNames() {
		conn := c.Connections[name]

		switch conn.Driver {
		case DriverPGX, DriverPostgres, DriverSQLite:
		default:
			return fmt.Errorf("connection %q: %w: %q", name, ErrUnknownDriver, conn.Driver)
		}

		if conn.DSN == "" {
			return fmt.Errorf("connection %q: %w", name, ErrEmptyDSN)
		}
	}

	return nil
}

// EnvDSNKey returns the env variable that overrides the DSN of the named connection.
func EnvDSNKey(name string) string {
	return EnvDSNPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	getenv := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	for name, conn := range c.Connections {
		conn.DSN = getenv(EnvDSNKey(name), conn.DSN)
		c.Connections[name] = conn
	}

	c.Blob.Bucket = getenv(EnvBlobBucket, c.Blob.Bucket)
	c.Blob.Region = getenv(EnvBlobRegion, c.Blob.Region)
	c.Blob.Endpoint = getenv(EnvBlobEndpoint, c.Blob.Endpoint)

	if v, ok := lookup(EnvBlobPathStyle); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Blob.PathStyle = parsed
		}
	}
}

func (c *Config) applyDefaults() {
	for name, conn := range c.Connections {
		conn.Name = name

		if conn.Driver == "" {
			conn.Driver = DriverPGX
		}

		if conn.MaxOpenConns == 0 {
			conn.MaxOpenConns = defaultMaxOpenConns
		}

		if conn.MaxIdleConns == 0 {
			conn.MaxIdleConns = defaultMaxIdleConns
		}

		if conn.ConnMaxLifetime == 0 {
			conn.ConnMaxLifetime = defaultConnMaxLifetime
		}

		c.Connections[name] = conn
	}
}
