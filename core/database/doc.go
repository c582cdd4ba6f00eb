// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// from the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, sizes the connection pool and pings the
// database before returning. SQLite connections are limited to a single
// connection so in-memory databases survive between statements.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read table definitions in a dialect
// neutral form. The migrate command uses them to verify that the relation
// tables (including composite-key link tables) carry the expected columns.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "project_link", []string{"language", "name", "project_id"})
package database
