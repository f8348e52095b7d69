package config

import "os"

// envBindings maps environment variables onto string settings.
// SECRET_KEY and ALGORITHM keep the names deployments already export.
func envBindings(c *Config) map[string]*string {
	return map[string]*string{
		"SECRET_KEY":       &c.SecretKey,
		"ALGORITHM":        &c.Algorithm,
		"DATABASE_DRIVER":  &c.DatabaseDriver,
		"DATABASE_DSN":     &c.DatabaseDSN,
		"LOG_LEVEL":        &c.LogLevel,
		"S3_ROOT_USER":     &c.S3RootUser,
		"S3_ROOT_PASSWORD": &c.S3RootPassword,
		"S3_BUCKET":        &c.S3Bucket,
	}
}

// parseEnv overrides settings from non-empty environment variables.
func parseEnv(config *Config) {
	for name, dst := range envBindings(config) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}
