// Package config loads the process-wide, immutable configuration described
// in spec.md §6. It is read once at startup via viper (env-var bound, no
// config file requirement) and passed explicitly into the connector, cache,
// and engine constructors — never read again from a package-level var.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// Config is the fully resolved, validated process configuration.
type Config struct {
	OracleConnectionString string
	TargetSchema           string
	CacheDir               string
	ThickMode              bool
	OracleClientLibDir     string
	PoolSize               int
	PoolAcquireTimeout     time.Duration
	ToolDeadline           time.Duration
}

const envPrefix = ""

// Load reads configuration from the environment (and, if present, a
// config file discoverable by viper's search path), applies the defaults
// from spec.md §6's Configuration table, and validates required fields.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("target_schema", "")
	v.SetDefault("cache_dir", ".cache")
	v.SetDefault("thick_mode", false)
	v.SetDefault("oracle_client_lib_dir", "")
	v.SetDefault("pool_size", 8)
	v.SetDefault("pool_acquire_timeout_ms", 5000)
	v.SetDefault("tool_deadline_ms", 30000)

	v.SetConfigName("oracleschema-mcpd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperr.Wrap(apperr.InvalidArgument, "reading config file", err)
		}
	}

	connStr := v.GetString("oracle_connection_string")
	if connStr == "" {
		return nil, apperr.New(apperr.InvalidArgument, "ORACLE_CONNECTION_STRING is required")
	}

	poolSize := v.GetInt("pool_size")
	if poolSize < 1 {
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("POOL_SIZE must be >= 1, got %d", poolSize))
	}

	return &Config{
		OracleConnectionString: connStr,
		TargetSchema:           v.GetString("target_schema"),
		CacheDir:               v.GetString("cache_dir"),
		ThickMode:              v.GetBool("thick_mode"),
		OracleClientLibDir:     v.GetString("oracle_client_lib_dir"),
		PoolSize:               poolSize,
		PoolAcquireTimeout:     time.Duration(v.GetInt("pool_acquire_timeout_ms")) * time.Millisecond,
		ToolDeadline:           time.Duration(v.GetInt("tool_deadline_ms")) * time.Millisecond,
	}, nil
}

// Redacted returns a copy of the connection string safe for logging: the
// user/pass@ prefix is stripped, per spec.md §7's "never expose credentials".
func Redacted(connStr string) string {
	if i := strings.Index(connStr, "@"); i >= 0 {
		return "***@" + connStr[i+1:]
	}
	return "***"
}
