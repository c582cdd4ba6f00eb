package storage

import (
	"strings"
	"time"
)

// Config holds configuration for the storage provider.
type Config struct {
	// Enabled turns on the save journal. When false no storage client is created.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket to store save reports in.
	Bucket string `mapstructure:"bucket" default:"relsave"`
	// JournalPrefix is the object prefix under which save reports are written.
	JournalPrefix string `mapstructure:"journal_prefix" default:"journal"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Host returns Endpoint without its scheme, as MinIO expects it.
func (c Config) Host() string {
	host := strings.TrimPrefix(c.Endpoint, "http://")
	return strings.TrimPrefix(host, "https://")
}

// Secure reports whether TLS is used. An https endpoint implies it.
func (c Config) Secure() bool {
	return c.UseSSL || strings.HasPrefix(c.Endpoint, "https://")
}

// Timeout returns TimeoutSeconds as a duration, 30 seconds when unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
