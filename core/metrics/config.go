package metrics

// Config holds configuration for Prometheus metrics.
type Config struct {
	// Enabled exposes the metrics endpoint on the HTTP server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the route serving the metrics.
	Path string `mapstructure:"path" default:"/metrics"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" default:"relsave"`
}
