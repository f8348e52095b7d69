package config

import (
	"os"

	"github.com/dmitrijs2005/gophstat/internal/flagx"
	"github.com/dmitrijs2005/gophstat/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. YAML is the
// native format; JSON files load too since JSON is valid YAML.
//
// Pointer fields distinguish "absent" from "zero", so a file only
// overrides the settings it actually mentions.
type FileConfig struct {
	EndpointAddrHTTP            *string         `yaml:"endpoint_addr_http"`
	DatabaseDriver              *string         `yaml:"database_driver"`
	DatabaseDSN                 *string         `yaml:"database_dsn"`
	SecretKey                   *string         `yaml:"secret_key"`
	Algorithm                   *string         `yaml:"algorithm"`
	AccessTokenValidityDuration *timex.Duration `yaml:"access_token_validity_duration"`
	BcryptCost                  *int            `yaml:"bcrypt_cost"`
	StatisticsVariance          *string         `yaml:"statistics_variance"`
	MaxUploadSize               *int64          `yaml:"max_upload_size"`
	LogLevel                    *string         `yaml:"log_level"`
	LogFormat                   *string         `yaml:"log_format"`
	ShutdownTimeout             *timex.Duration `yaml:"shutdown_timeout"`
	S3RootUser                  *string         `yaml:"s3_root_user"`
	S3RootPassword              *string         `yaml:"s3_root_password"`
	S3Bucket                    *string         `yaml:"s3_bucket"`
	S3Region                    *string         `yaml:"s3_region"`
	S3BaseEndpoint              *string         `yaml:"s3_base_endpoint"`
}

// parseFile overlays values from the file named by -c/-config.
// No flag means nothing to load. An unreadable or invalid file panics,
// as a server started with a broken config should not come up at all.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	if err := yaml.Unmarshal(raw, fc); err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.Algorithm, fc.Algorithm)
	if fc.AccessTokenValidityDuration != nil {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.BcryptCost != nil {
		c.BcryptCost = *fc.BcryptCost
	}
	setString(&c.StatisticsVariance, fc.StatisticsVariance)
	if fc.MaxUploadSize != nil {
		c.MaxUploadSize = *fc.MaxUploadSize
	}
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	if fc.ShutdownTimeout != nil {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
