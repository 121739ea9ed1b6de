// Package config loads the YAML configuration recognized by §6,
// layered with environment-variable defaults per §6's "Environment
// variables consumed by the core" (file values take precedence).
//
// Grounded on valpere-tile_to_json/internal/config/config.go's shape:
// viper + mapstructure tags, setDefaults()/Validate(), nested structs
// per concern.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/tileserv/tileserv/internal/errs"
)

// Config is the complete server configuration (§6).
type Config struct {
	KeepAlive          int      `mapstructure:"keep_alive"`
	ListenAddresses    string   `mapstructure:"listen_addresses"`
	WorkerProcesses    int      `mapstructure:"worker_processes"`
	CacheSizeMB        int      `mapstructure:"cache_size_mb"`
	PreferredEncoding  string   `mapstructure:"preferred_encoding"`
	Postgres           Postgres `mapstructure:"postgres"`
	PMTiles            Archives `mapstructure:"pmtiles"`
	MBTiles            Archives `mapstructure:"mbtiles"`
	COG                Archives `mapstructure:"cog"`
}

// Postgres holds the postgres.* configuration keys (§6).
type Postgres struct {
	ConnectionString string           `mapstructure:"connection_string"`
	PoolSize         int              `mapstructure:"pool_size"`
	DefaultSRID      int              `mapstructure:"default_srid"`
	MaxFeatureCount  int              `mapstructure:"max_feature_count"`
	AutoBounds       string           `mapstructure:"auto_bounds"`
	AutoPublish      bool             `mapstructure:"auto_publish"`
	Tables           []map[string]any `mapstructure:"tables"`
	Functions        []map[string]any `mapstructure:"functions"`
	SSLMode          string           `mapstructure:"ssl_mode"`
	SSLCert          string           `mapstructure:"ssl_cert"`
	SSLKey           string           `mapstructure:"ssl_key"`
	SSLRootCert      string           `mapstructure:"ssl_root_cert"`
}

// Archives holds pmtiles.*/mbtiles.* configuration keys (§6).
type Archives struct {
	Paths   []string          `mapstructure:"paths"`
	Sources map[string]string `mapstructure:"sources"`
}

// Load reads configuration from path (if non-empty), environment
// variables, and documented defaults, in that order of increasing
// precedence being: defaults < environment < file, per §6 ("Values in
// the configuration file take precedence").
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Config("reading configuration file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Config("unmarshalling configuration", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("keep_alive", 75)
	v.SetDefault("listen_addresses", "0.0.0.0:3000")
	v.SetDefault("worker_processes", 0) // 0 = number of CPU cores
	v.SetDefault("cache_size_mb", 256)
	v.SetDefault("preferred_encoding", "gzip")
	v.SetDefault("postgres.pool_size", 20)
	v.SetDefault("postgres.auto_bounds", "quick")
	v.SetDefault("postgres.auto_publish", true)
	v.SetDefault("postgres.ssl_mode", "prefer")
}

// bindEnv binds §6's five environment variables. DATABASE_URL maps to
// postgres.connection_string, DEFAULT_SRID to postgres.default_srid,
// and the libpq-standard PGSSLCERT/PGSSLKEY/PGSSLROOTCERT map to
// postgres.ssl_cert/ssl_key/ssl_root_cert — all consumed here rather
// than in cmd/tileserv/main.go, so every environment-variable binding
// lives in one place.
func bindEnv(v *viper.Viper) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		v.SetDefault("postgres.connection_string", dsn)
	}
	if srid := os.Getenv("DEFAULT_SRID"); srid != "" {
		v.SetDefault("postgres.default_srid", srid)
	}
	if cert := os.Getenv("PGSSLCERT"); cert != "" {
		v.SetDefault("postgres.ssl_cert", cert)
	}
	if key := os.Getenv("PGSSLKEY"); key != "" {
		v.SetDefault("postgres.ssl_key", key)
	}
	if rootCert := os.Getenv("PGSSLROOTCERT"); rootCert != "" {
		v.SetDefault("postgres.ssl_root_cert", rootCert)
	}
}

// Validate checks cross-field invariants not expressible via defaults.
func Validate(c *Config) error {
	switch c.PreferredEncoding {
	case "gzip", "brotli", "zstd", "identity":
	default:
		return errs.Config(fmt.Sprintf("invalid preferred_encoding %q", c.PreferredEncoding), nil)
	}
	switch c.Postgres.AutoBounds {
	case "", "quick", "calc", "skip":
	default:
		return errs.Config(fmt.Sprintf("invalid postgres.auto_bounds %q", c.Postgres.AutoBounds), nil)
	}
	switch c.Postgres.SSLMode {
	case "", "disable", "prefer", "require", "verify-ca", "verify-full":
	default:
		return errs.Config(fmt.Sprintf("invalid postgres.ssl_mode %q", c.Postgres.SSLMode), nil)
	}
	return nil
}
