// Package config provides configuration management for relsave.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file loaded through godotenv.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, body limit)
//   - Database: driver (mysql or sqlite) and connection details
//   - Storage: S3/MinIO credentials and the save journal bucket
//   - Metrics: Prometheus endpoint
//   - Log: Logging level and format
//
// Defaults come from the `default` struct tags; environment variables map to
// nested keys by replacing dots with underscores (DATABASE_DRIVER -> database.driver).
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Driver)
package config
