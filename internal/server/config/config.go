// Package config handles configuration for the gophstat server,
// including defaults, a YAML/JSON file overlay, environment variables
// and command-line flags.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Supported values for the enumerated settings.
var (
	Algorithms       = []string{"HS256", "HS384", "HS512"}
	DatabaseDrivers  = []string{"sqlite", "postgres"}
	VarianceModes    = []string{"population", "sample"}
	DefaultUploadCap = int64(20 << 20)
)

// Config holds runtime settings for the gophstat server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDriver / DatabaseDSN: credential store backend ("sqlite" or "postgres") and its DSN.
//   - SecretKey / Algorithm: HMAC key and JWT algorithm (HS256, HS384, HS512).
//   - AccessTokenValidityDuration: lifetime of tokens issued by POST /token.
//   - BcryptCost: work factor used when provisioning new password hashes.
//   - StatisticsVariance: "population" or "sample".
//   - MaxUploadSize: byte ceiling for uploaded CSV files.
//   - LogLevel / LogFormat: slog level and handler ("json" or "text").
//   - ShutdownTimeout: grace period for in-flight requests on stop.
//   - S3*: optional archive of uploads; an empty S3Bucket disables it.
type Config struct {
	EndpointAddrHTTP            string
	DatabaseDriver              string
	DatabaseDSN                 string
	SecretKey                   string
	Algorithm                   string
	AccessTokenValidityDuration time.Duration
	BcryptCost                  int
	StatisticsVariance          string
	MaxUploadSize               int64
	LogLevel                    string
	LogFormat                   string
	ShutdownTimeout             time.Duration
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key must be overridden outside of local development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:db.sqlite3"
	c.SecretKey = "09d25e094faa6ca2556c818166b7a9563b93f7099f6f0f4caa6cf63b88e8d3e7"
	c.Algorithm = "HS256"
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.BcryptCost = bcrypt.DefaultCost
	c.StatisticsVariance = "population"
	c.MaxUploadSize = DefaultUploadCap
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.ShutdownTimeout = 10 * time.Second
	c.S3Region = "us-east-1"
}

// Validate reports the first setting that the server cannot run with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is empty")
	}
	if !slices.Contains(Algorithms, strings.ToUpper(c.Algorithm)) {
		return fmt.Errorf("unsupported algorithm %q, want one of %v", c.Algorithm, Algorithms)
	}
	if !slices.Contains(DatabaseDrivers, c.DatabaseDriver) {
		return fmt.Errorf("unsupported database driver %q, want one of %v", c.DatabaseDriver, DatabaseDrivers)
	}
	if !slices.Contains(VarianceModes, c.StatisticsVariance) {
		return fmt.Errorf("unsupported variance mode %q, want one of %v", c.StatisticsVariance, VarianceModes)
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadSize)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// LoadStoreConfig is LoadConfig without the server flags, for tools that
// share the config file and environment but parse their own command line.
func LoadStoreConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	return cfg
}
